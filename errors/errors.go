// Package errors provides error handling for callsheet.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints that the CLI prints under an error
//
// It also defines the campaign error taxonomy. Fatal conditions
// (ErrSourceUnavailable, ErrPersistFailure) stop a run; recoverable ones
// (ErrVerificationMismatch, ErrActionDriverFailure) are handled inside the runner.
//
// Usage:
//
//	if err := ledger.Persist(); err != nil {
//	    return errors.Mark(errors.Wrap(err, "rewrite ledger"), errors.ErrPersistFailure)
//	}
//
//	if errors.IsPersistFailure(err) {
//	    // halt the run
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Campaign error taxonomy.
// Wrap these with errors.Mark() or errors.Wrap() to add context while preserving the type.
var (
	// ErrSourceUnavailable indicates the ledger or blacklist source cannot be read.
	// Fatal to the current run; no partial processing is attempted.
	ErrSourceUnavailable = New("source unavailable")

	// ErrPersistFailure indicates the ledger could not be rewritten after a successful action.
	// Fatal: continuing would desynchronize memory and disk.
	ErrPersistFailure = New("persist failed")

	// ErrVerificationMismatch indicates the feedback did not match the dispatched value.
	// Recoverable: the same contact is re-prompted.
	ErrVerificationMismatch = New("verification mismatch")

	// ErrActionDriverFailure indicates the external action itself errored.
	// Recoverable: the contact stays pending and the run moves on after a cooldown.
	ErrActionDriverFailure = New("action driver failure")

	// ErrSystemicDriverFailure indicates too many consecutive driver failures.
	ErrSystemicDriverFailure = New("repeated action driver failures")

	// ErrAborted indicates the operator stopped the run.
	ErrAborted = New("aborted by operator")
)

// General-purpose sentinels
var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsSourceUnavailable checks if an error is or wraps ErrSourceUnavailable
func IsSourceUnavailable(err error) bool {
	return err != nil && Is(err, ErrSourceUnavailable)
}

// IsPersistFailure checks if an error is or wraps ErrPersistFailure
func IsPersistFailure(err error) bool {
	return err != nil && Is(err, ErrPersistFailure)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsRecoverable reports whether err belongs to the recoverable half of the taxonomy.
// Nil is not an error and is reported as not recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if IsAny(err, ErrSourceUnavailable, ErrPersistFailure, ErrSystemicDriverFailure) {
		return false
	}
	return IsAny(err, ErrVerificationMismatch, ErrActionDriverFailure)
}

// SourceUnavailable marks err as ErrSourceUnavailable with a context message.
func SourceUnavailable(err error, context string) error {
	return Mark(Wrap(err, context), ErrSourceUnavailable)
}

// PersistFailure marks err as ErrPersistFailure with a context message.
func PersistFailure(err error, context string) error {
	return Mark(Wrap(err, context), ErrPersistFailure)
}

// DriverFailure marks err as ErrActionDriverFailure with a context message.
func DriverFailure(err error, context string) error {
	return Mark(Wrap(err, context), ErrActionDriverFailure)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
