package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError marks malformed or invariant-violating input to the
// calculator / journal builders. Never retried; always propagated to the
// caller unchanged.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DatabaseError wraps a failed ledger-store call. The batch persister
// retries these with backoff before surfacing them in a partial-failure
// report.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

func NewDatabaseError(op string, err error) *DatabaseError {
	return &DatabaseError{Op: op, Err: err}
}

func IsDatabaseError(err error) bool {
	var de *DatabaseError
	return errors.As(err, &de)
}

// ReconciliationError marks a malformed master roster file (missing
// required columns, unreadable content). Aborts the whole reconciliation
// run before any staging writes.
type ReconciliationError struct {
	Message string
}

func (e *ReconciliationError) Error() string {
	return e.Message
}

func NewReconciliationError(format string, args ...any) *ReconciliationError {
	return &ReconciliationError{Message: fmt.Sprintf(format, args...)}
}

func IsReconciliationError(err error) bool {
	var re *ReconciliationError
	return errors.As(err, &re)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
