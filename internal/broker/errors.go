package broker

import "fmt"

// AuthError means the session is missing, expired, or lacks permission.
// Callers should prompt for a fresh login rather than retry.
type AuthError struct {
	Message   string
	ErrorType string
}

func (e *AuthError) Error() string {
	if e == nil {
		return "broker auth error"
	}
	msg := "broker authentication failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.ErrorType != "" {
		msg += " (" + e.ErrorType + ")"
	}
	return msg
}

// NetworkError wraps a transport-level failure reaching the brokerage.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "broker network error"
	}
	return fmt.Sprintf("broker request %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError is a non-auth rejection reported by the brokerage API.
type APIError struct {
	Path       string
	StatusCode int
	ErrorType  string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "broker api error"
	}
	return fmt.Sprintf("broker api %s returned status %d (%s): %s", e.Path, e.StatusCode, e.ErrorType, e.Message)
}
