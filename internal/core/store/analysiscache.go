package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foliolens/foliolens/internal/core"
)

// GetCachedAnalysis returns a cached analysis for the snapshot hash and model
// if one exists and has not expired. A miss returns nil, nil.
func (s *Store) GetCachedAnalysis(ctx context.Context, snapshotHash, model string) (*core.Analysis, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	snapshotHash = strings.TrimSpace(snapshotHash)
	if snapshotHash == "" {
		return nil, errors.New("snapshot hash is required")
	}

	var payload string
	row := s.DB.QueryRowContext(ctx, `
		SELECT response_json
		FROM analysis_cache
		WHERE snapshot_hash = ? AND model = ? AND expires_at > ?
	`, snapshotHash, model, time.Now().UTC().Unix())

	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached analysis: %w", err)
	}

	var analysis core.Analysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("decode cached analysis: %w", err)
	}

	return &analysis, nil
}

// PutCachedAnalysis stores an analysis keyed by snapshot hash and model.
func (s *Store) PutCachedAnalysis(ctx context.Context, snapshotHash, model string, analysis *core.Analysis, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	snapshotHash = strings.TrimSpace(snapshotHash)
	if snapshotHash == "" {
		return errors.New("snapshot hash is required")
	}
	if analysis == nil {
		return errors.New("analysis is required")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO analysis_cache (snapshot_hash, model, response_json, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(snapshot_hash, model) DO UPDATE SET
			response_json = excluded.response_json,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, snapshotHash, model, string(payload), now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached analysis: %w", err)
	}

	return nil
}

// PruneAnalysisCache removes expired cache rows and reports how many were
// deleted.
func (s *Store) PruneAnalysisCache(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM analysis_cache WHERE expires_at <= ?
	`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune analysis cache: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune analysis cache: %w", err)
	}
	return removed, nil
}
