package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foliolens/foliolens/internal/core"
)

// IndexReport records a written report file so it can be listed later.
func (s *Store) IndexReport(ctx context.Context, record core.ReportRecord) (*core.ReportRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(record.Filename) == "" {
		return nil, errors.New("report filename is required")
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO reports (id, filename, path, format, primary_goal, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.Filename, record.Path, record.Format, record.PrimaryGoal, record.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("store report index: %w", err)
	}

	return &record, nil
}

// ListReports returns indexed reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]core.ReportRecord, error) {
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
		SELECT id, filename, path, format, primary_goal, created_at
		FROM reports
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []core.ReportRecord
	for rows.Next() {
		var (
			record      core.ReportRecord
			primaryGoal *string
			createdAt   int64
		)
		if err := rows.Scan(&record.ID, &record.Filename, &record.Path, &record.Format, &primaryGoal, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report index: %w", err)
		}
		if primaryGoal != nil {
			record.PrimaryGoal = *primaryGoal
		}
		record.CreatedAt = time.Unix(createdAt, 0).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	return records, nil
}
