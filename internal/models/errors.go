package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the storage and service layers. Callers branch with
// errors.Is.
var (
	// ErrNotFound reports a referenced group, user, settlement, expense or
	// pending member that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a lost update detected by a conditional write
	// (score compare-and-swap). Callers retry a bounded number of times
	// with fresh reads before surfacing it.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrTransactionFailed reports a reconciliation that rolled back.
	// No partial state remains when this is returned.
	ErrTransactionFailed = errors.New("transaction failed")
)

// ValidationError reports malformed input: negative amounts, split sums that
// miss the expense amount, self-settlements, unknown reason codes. Never
// retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
