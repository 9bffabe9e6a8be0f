// Package errors defines the domain error kinds returned by the ledger.
// Callers match them with the standard library's errors.Is.
package errors

import (
	stderrors "errors"
)

// DomainError is a tagged error kind. Sentinels are compared by identity,
// so wrap them with fmt.Errorf("...: %w", ErrX) to add context.
type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *DomainError) Error() string {
	return e.Message
}

// Code returns the code of the first DomainError in err's chain, or "" if none.
func Code(err error) string {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Message returns the client-facing message of the first DomainError in
// err's chain, or "" if none. Wrapped context is not included.
func Message(err error) string {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Message
	}
	return ""
}

// IsRetryable reports whether err carries a kind the caller may retry.
func IsRetryable(err error) bool {
	var de *DomainError
	return stderrors.As(err, &de) && de.Retryable
}
