package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no item matches the lookup
	ErrNotFound = errors.New("item not found")
	// ErrDuplicateExternalID is returned when an item with the same external id already exists
	ErrDuplicateExternalID = errors.New("duplicate external_id")
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint violations
const uniqueViolation = "23505"

// PersistenceError wraps a failed structured store operation
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// wrapError classifies a driver error for op
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return &PersistenceError{Op: op, Err: ErrDuplicateExternalID}
	}
	return &PersistenceError{Op: op, Err: err}
}
