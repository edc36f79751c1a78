package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS preferences (
		id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		primary_goal TEXT,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_preferences_created ON preferences(created_at);`,
	`CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		path TEXT NOT NULL,
		format TEXT NOT NULL,
		primary_goal TEXT,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);`,
	`CREATE TABLE IF NOT EXISTS analysis_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_hash TEXT NOT NULL,
		model TEXT NOT NULL,
		response_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		UNIQUE(snapshot_hash, model)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_cache_expires ON analysis_cache(expires_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
