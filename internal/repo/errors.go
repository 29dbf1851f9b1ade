package repo

import (
	"errors"
	"fmt"
)

// Code categorizes repository errors for callers that branch on outcome
// rather than message text.
type Code string

const (
	// CodeValidation - input rejected before any side effect occurred.
	CodeValidation Code = "VALIDATION"

	// CodeNotFound - the target entity is absent from the local cache.
	// Local-first updates never fall back to a remote read.
	CodeNotFound Code = "NOT_FOUND"

	// CodePersistence - a local storage write failed. No pending action
	// is enqueued after a failed cache write (no orphan queue entries).
	CodePersistence Code = "PERSISTENCE"

	// CodeRemote - a direct remote operation failed (pure-remote
	// fallback mode only; local-first writes never wait on the network).
	CodeRemote Code = "REMOTE"
)

// Error is a categorized repository failure.
type Error struct {
	Code Code
	Op   string // e.g. "songs.create"
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Op)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsNotFound reports whether err is a local cache miss.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsPersistence reports whether err is a local storage failure.
func IsPersistence(err error) bool {
	return hasCode(err, CodePersistence)
}

// IsRemote reports whether err is a direct remote failure.
func IsRemote(err error) bool {
	return hasCode(err, CodeRemote)
}

func hasCode(err error, code Code) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func validationErr(op string, err error) *Error {
	return &Error{Code: CodeValidation, Op: op, Err: err}
}

func notFoundErr(op string, err error) *Error {
	return &Error{Code: CodeNotFound, Op: op, Err: err}
}

func persistenceErr(op string, err error) *Error {
	return &Error{Code: CodePersistence, Op: op, Err: err}
}

func remoteErr(op string, err error) *Error {
	return &Error{Code: CodeRemote, Op: op, Err: err}
}
