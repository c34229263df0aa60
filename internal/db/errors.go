package db

import (
	"errors"
	"fmt"
)

// ErrRunAlreadyTerminal is returned when a terminal write targets a run that
// is no longer pending.
var ErrRunAlreadyTerminal = errors.New("pipeline run is already in a terminal state")

// NotFoundError indicates the requested record does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// DuplicateEmailError indicates another client already uses the email
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("client with email %s already exists", e.Email)
}

// DatabaseError wraps an unexpected persistence failure
type DatabaseError struct {
	Op    string
	Cause error
}

func (e *DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("failed to %s", e.Op)
}

func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{Op: op, Cause: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicateEmail reports whether err is a DuplicateEmailError.
func IsDuplicateEmail(err error) bool {
	var de *DuplicateEmailError
	return errors.As(err, &de)
}
