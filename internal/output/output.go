package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/foliolens/foliolens/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
)

// Formatter renders an assembled report.
type Formatter interface {
	FormatReport(report *core.Report) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatTable:
		return &TableFormatter{}
	default:
		return &MarkdownFormatter{}
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatTable:
		return "txt"
	default:
		return "md"
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func inr(value float64) string {
	return fmt.Sprintf("₹%.2f", value)
}

func percent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}
