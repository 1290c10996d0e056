package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// WatchWeights reloads store whenever its overlay file changes, until ctx is
// done. The parent directory is watched so that editors which replace the
// file on save are still seen.
func WatchWeights(ctx context.Context, store *WeightStore, log logrus.FieldLogger) error {
	if store.Path() == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create weights watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(store.Path())
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	log.WithField("path", target).Info("Watching risk weights file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w, err := store.Reload()
			if err != nil {
				log.WithError(err).Warn("Risk weights reload failed, keeping previous weights")
				continue
			}
			log.WithFields(logrus.Fields{
				"completion": w.Completion,
				"quiz":       w.Quiz,
				"missed":     w.Missed,
				"login":      w.Login,
			}).Info("Risk weights reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("Risk weights watcher error")
		}
	}
}
