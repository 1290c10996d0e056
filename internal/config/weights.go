package config

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/BurntSushi/toml"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// FileConfig is the optional TOML overlay file
type FileConfig struct {
	Risk RiskFileConfig `toml:"risk"`
}

// RiskFileConfig maps the [risk] table
type RiskFileConfig struct {
	Weights WeightsOverlay `toml:"weights"`
}

// WeightsOverlay holds weights set in the file; nil fields keep the env value
type WeightsOverlay struct {
	Completion *float64 `toml:"completion"`
	Quiz       *float64 `toml:"quiz"`
	Missed     *float64 `toml:"missed"`
	Login      *float64 `toml:"login"`
}

// Apply overlays the set fields onto w
func (o WeightsOverlay) Apply(w model.RiskWeights) model.RiskWeights {
	if o.Completion != nil {
		w.Completion = *o.Completion
	}
	if o.Quiz != nil {
		w.Quiz = *o.Quiz
	}
	if o.Missed != nil {
		w.Missed = *o.Missed
	}
	if o.Login != nil {
		w.Login = *o.Login
	}
	return w
}

// LoadFile reads a TOML overlay from path. A missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ValidateWeights rejects negative or non-finite weights
func ValidateWeights(w model.RiskWeights) error {
	for name, v := range map[string]float64{
		"completion": w.Completion,
		"quiz":       w.Quiz,
		"missed":     w.Missed,
		"login":      w.Login,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("risk weight %s must be a non-negative number, got %v", name, v)
		}
	}
	return nil
}

// WeightStore holds the live risk weights. Env values form the base and the
// optional TOML file is overlaid on every Reload. It satisfies
// risk.WeightSource.
//
// Thread Safety: Safe for concurrent use.
type WeightStore struct {
	base    model.RiskWeights
	path    string
	current atomic.Pointer[model.RiskWeights]
}

// NewWeightStore creates a store and performs the initial load
func NewWeightStore(base model.RiskWeights, path string) (*WeightStore, error) {
	if err := ValidateWeights(base); err != nil {
		return nil, err
	}
	s := &WeightStore{base: base, path: path}
	s.current.Store(&base)
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Weights returns the current weights
func (s *WeightStore) Weights() model.RiskWeights {
	return *s.current.Load()
}

// Path returns the overlay file path, empty when none is configured
func (s *WeightStore) Path() string { return s.path }

// Reload re-reads the overlay file. On error the previous weights stay live.
func (s *WeightStore) Reload() (model.RiskWeights, error) {
	w := s.base
	if s.path != "" {
		file, err := LoadFile(s.path)
		if err != nil {
			return s.Weights(), err
		}
		w = file.Risk.Weights.Apply(w)
	}
	if err := ValidateWeights(w); err != nil {
		return s.Weights(), err
	}
	s.current.Store(&w)
	return w, nil
}

// Set replaces the live weights directly
func (s *WeightStore) Set(w model.RiskWeights) error {
	if err := ValidateWeights(w); err != nil {
		return err
	}
	s.current.Store(&w)
	return nil
}
