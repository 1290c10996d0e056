package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// fixed width so lexical order matches time order
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteOutcomeRepo is an OutcomeRepo for single-node deployments
type SQLiteOutcomeRepo struct {
	db *sql.DB
}

// OpenSQLiteOutcomeRepo opens or creates the database at path and applies
// migrations.
func OpenSQLiteOutcomeRepo(path string) (*SQLiteOutcomeRepo, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps ":memory:" on a single shared connection
	db.SetMaxOpenConns(1)

	repo := &SQLiteOutcomeRepo{db: db}
	if err := repo.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate outcome store: %w", err)
	}
	return repo, nil
}

// Close closes the underlying database
func (r *SQLiteOutcomeRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteOutcomeRepo) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS generation_outcomes (
			id TEXT PRIMARY KEY,
			learner_id TEXT NOT NULL,
			text TEXT NOT NULL,
			provenance TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			generator TEXT NOT NULL,
			fallback_reason TEXT NOT NULL DEFAULT '',
			generated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_learner ON generation_outcomes(learner_id, generated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts one outcome
func (r *SQLiteOutcomeRepo) Record(ctx context.Context, outcome *model.GenerationOutcome) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO generation_outcomes (id, learner_id, text, provenance, attempts, generator, fallback_reason, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.ID,
		outcome.LearnerID,
		outcome.Text,
		string(outcome.Provenance),
		outcome.Attempts,
		outcome.Generator,
		outcome.FallbackReason,
		outcome.GeneratedAt.UTC().Format(sqliteTimeLayout),
	)
	return err
}

// ListByLearner returns the newest outcomes first; limit <= 0 returns all
func (r *SQLiteOutcomeRepo) ListByLearner(ctx context.Context, learnerID string, limit int) ([]*model.GenerationOutcome, error) {
	query := `SELECT id, learner_id, text, provenance, attempts, generator, fallback_reason, generated_at
		FROM generation_outcomes WHERE learner_id = ? ORDER BY generated_at DESC`
	args := []interface{}{learnerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*model.GenerationOutcome
	for rows.Next() {
		var o model.GenerationOutcome
		var provenance, generatedAt string
		if err := rows.Scan(&o.ID, &o.LearnerID, &o.Text, &provenance, &o.Attempts, &o.Generator, &o.FallbackReason, &generatedAt); err != nil {
			return nil, err
		}
		o.Provenance = model.Provenance(provenance)
		if o.GeneratedAt, err = time.Parse(sqliteTimeLayout, generatedAt); err != nil {
			return nil, fmt.Errorf("outcome %s: bad generated_at %q: %w", o.ID, generatedAt, err)
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}
