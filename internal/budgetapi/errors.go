package budgetapi

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("budget api: network error")
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("budget api: validation error")
)

// NetworkError reports a failed read or delete: either the request never
// completed or the service answered with a non-success status.
type NetworkError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

// Error includes the status code or transport cause; Message alone is
// what the user sees.
func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Message, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ValidationError reports a rejected create. Message is the server-provided
// detail when there is one.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
