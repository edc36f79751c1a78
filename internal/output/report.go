package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foliolens/foliolens/internal/core"
)

const reportTimestampLayout = "20060102_150405"

// ReportFilename builds the timestamped filename for a report.
func ReportFilename(format Format, at time.Time) string {
	return fmt.Sprintf("portfolio_analysis_%s.%s", at.Format(reportTimestampLayout), format.Extension())
}

// WriteReport renders the report and writes it to a timestamped file under
// dir, creating the directory if needed. The returned record describes the
// written file so it can be indexed.
func WriteReport(dir string, report *core.Report, format Format, clock func() time.Time) (*core.ReportRecord, error) {
	if report == nil {
		return nil, errors.New("report is required")
	}
	if dir == "" {
		dir = "."
	}
	if clock == nil {
		clock = time.Now
	}

	rendered, err := NewFormatter(format).FormatReport(report)
	if err != nil {
		return nil, err
	}

	// #nosec G301 -- report directories use 0755 for multi-user access compatibility
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	now := clock().UTC()
	filename := ReportFilename(format, now)
	path := filepath.Join(dir, filename)

	// #nosec G306 -- reports are user-facing documents, not secrets
	if err := os.WriteFile(path, []byte(rendered), 0644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	record := &core.ReportRecord{
		Filename:  filename,
		Path:      path,
		Format:    string(format),
		CreatedAt: now,
	}
	if report.Preferences != nil {
		record.PrimaryGoal = report.Preferences.Goals.PrimaryGoal
	}
	return record, nil
}
