package advisor

import "encoding/json"

// RawResponseError wraps a decode failure with the raw model payload.
//
// Callers that fall back to deterministic analysis can still log the raw
// response for debugging.
type RawResponseError struct {
	Err error
	Raw json.RawMessage
}

func (e *RawResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "advisor error"
	}
	return e.Err.Error()
}

func (e *RawResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
