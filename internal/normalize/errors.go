package normalize

import (
	"errors"
	"fmt"
)

// ErrMalformedInput matches every MalformedInputError via errors.Is.
var ErrMalformedInput = errors.New("malformed input")

// MalformedInputError reports a cell that could not be cast to its target
// type, or a whole row that could not be read when Column is empty. Row is
// the zero-based data row, header excluded.
type MalformedInputError struct {
	Table  string
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *MalformedInputError) Error() string {
	prefix := ""
	if e.Table != "" {
		prefix = e.Table + ": "
	}
	if e.Column == "" {
		return fmt.Sprintf("%srow %d: %v", prefix, e.Row, e.Err)
	}
	return fmt.Sprintf("%scolumn %q row %d: cannot parse %q: %v", prefix, e.Column, e.Row, e.Value, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }
