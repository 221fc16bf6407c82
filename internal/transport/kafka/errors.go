package kafka

import "fmt"

// InvalidEventError reports an intake message whose Field cannot be decoded.
// The consumer marks such messages and never redelivers them.
type InvalidEventError struct {
	Field string
	Err   error
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid intake event: %s: %v", e.Field, e.Err)
}

func (e *InvalidEventError) Unwrap() error { return e.Err }

func invalidField(field string, err error) error {
	return &InvalidEventError{Field: field, Err: err}
}
