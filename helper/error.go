package helper

import "fmt"

// Error wraps an error with a short trace of the operation that failed.
type Error struct {
	Original error
	Trace    string
}

// NewError wraps err with the given trace.
func NewError(trace string, err error) error {
	return &Error{
		Original: err,
		Trace:    trace,
	}
}

func (e *Error) Error() string {
	if e.Original == nil {
		return fmt.Sprintf("error %s", e.Trace)
	}
	return fmt.Sprintf("error %s: %v", e.Trace, e.Original)
}

// Unwrap returns the wrapped error so errors.Is and errors.As see through it.
func (e *Error) Unwrap() error {
	return e.Original
}
