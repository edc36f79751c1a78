package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/foliolens/foliolens/internal/core"
)

// extractJSONObject pulls the first balanced JSON object out of model output.
// Models sometimes wrap the payload in markdown fences or add prose around
// it despite instructions, so a direct unmarshal is tried last-resort style:
// fences are stripped first, then the outermost object is located by brace
// matching that ignores braces inside string literals.
func extractJSONObject(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errors.New("empty response content")
	}

	trimmed = stripFences(trimmed)

	start := strings.IndexByte(trimmed, '{')
	if start < 0 {
		return "", errors.New("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		c := trimmed[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return trimmed[start : i+1], nil
			}
		}
	}

	return "", errors.New("unbalanced JSON object in response")
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		body = body[idx+1:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func decodeAnalysis(raw string) (*core.Analysis, error) {
	object, err := extractJSONObject(raw)
	if err != nil {
		return nil, &RawResponseError{Err: err, Raw: json.RawMessage(raw)}
	}

	var analysis core.Analysis
	if err := json.Unmarshal([]byte(object), &analysis); err != nil {
		return nil, &RawResponseError{Err: fmt.Errorf("decode analysis: %w", err), Raw: json.RawMessage(raw)}
	}
	return &analysis, nil
}

func decodeSuggestions(raw string) (*core.SuggestionSet, error) {
	object, err := extractJSONObject(raw)
	if err != nil {
		return nil, &RawResponseError{Err: err, Raw: json.RawMessage(raw)}
	}

	var suggestions core.SuggestionSet
	if err := json.Unmarshal([]byte(object), &suggestions); err != nil {
		return nil, &RawResponseError{Err: fmt.Errorf("decode suggestions: %w", err), Raw: json.RawMessage(raw)}
	}
	return &suggestions, nil
}
