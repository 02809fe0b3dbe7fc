package schema

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTable  = errors.New("schema.errors.missing_table")
	ErrMissingColumn = errors.New("schema.errors.missing_column")
	ErrProbeFailed   = errors.New("schema.errors.probe_failed")
	ErrCheckPanicked = errors.New("schema.errors.check_panicked")
)

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("schema check panicked: %v", e.value)
}

func (e *panicError) Unwrap() error {
	return ErrCheckPanicked
}
