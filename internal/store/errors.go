package store

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a mutation or lookup targeted an id that does
// not exist. Delete deliberately does not return this - deleting an
// absent id is a no-op.
type NotFoundError struct {
	ID string
	Op string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("donation %s not found (op=%s)", e.ID, e.Op)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
