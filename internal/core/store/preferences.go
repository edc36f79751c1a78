package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foliolens/foliolens/internal/core"
)

// SavePreferences stores a completed questionnaire and returns the record.
func (s *Store) SavePreferences(ctx context.Context, prefs core.Preferences) (*core.PreferenceRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if prefs.CollectedAt.IsZero() {
		prefs.CollectedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}

	record := &core.PreferenceRecord{
		ID:          uuid.NewString(),
		Preferences: prefs,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO preferences (id, payload, primary_goal, created_at)
		VALUES (?, ?, ?, ?)
	`, record.ID, string(payload), prefs.Goals.PrimaryGoal, record.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("store preferences: %w", err)
	}

	return record, nil
}

// GetPreferences returns a stored questionnaire by id, or nil when absent.
func (s *Store) GetPreferences(ctx context.Context, id string) (*core.PreferenceRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("preference id is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, payload, created_at
		FROM preferences
		WHERE id = ?
	`, id)

	return scanPreferenceRow(row)
}

// LatestPreferences returns the most recently saved questionnaire, or nil
// when none exists.
func (s *Store) LatestPreferences(ctx context.Context) (*core.PreferenceRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, payload, created_at
		FROM preferences
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)

	return scanPreferenceRow(row)
}

// ListPreferences returns stored questionnaires, newest first.
func (s *Store) ListPreferences(ctx context.Context, limit int) ([]core.PreferenceRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, payload, created_at
		FROM preferences
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []core.PreferenceRecord
	for rows.Next() {
		var (
			id        string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&id, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan preferences: %w", err)
		}

		var prefs core.Preferences
		if err := json.Unmarshal([]byte(payload), &prefs); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}

		records = append(records, core.PreferenceRecord{
			ID:          id,
			Preferences: prefs,
			CreatedAt:   time.Unix(createdAt, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}

	return records, nil
}

func scanPreferenceRow(row *sql.Row) (*core.PreferenceRecord, error) {
	var (
		id        string
		payload   string
		createdAt int64
	)
	if err := row.Scan(&id, &payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch preferences: %w", err)
	}

	var prefs core.Preferences
	if err := json.Unmarshal([]byte(payload), &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}

	return &core.PreferenceRecord{
		ID:          id,
		Preferences: prefs,
		CreatedAt:   time.Unix(createdAt, 0).UTC(),
	}, nil
}
