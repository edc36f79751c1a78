package output

import (
	"encoding/json"
	"errors"

	"github.com/foliolens/foliolens/internal/core"
)

// JSONFormatter renders the report as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatReport renders a report as JSON.
func (f *JSONFormatter) FormatReport(report *core.Report) (string, error) {
	if report == nil {
		return "", errors.New("report is required")
	}

	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
