package qdiabetes

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a mandatory field is missing or a model is
// evaluated without the lab value it depends on.
var ErrInvalidInput = errors.New("invalid input")

// InputError names the offending field. It unwraps to ErrInvalidInput.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}
