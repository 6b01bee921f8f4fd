package errors

import (
	"context"
	"errors"
	"fmt"
)

// NoDumpFoundError signals that the metadata store has no dump covering the
// requested (repository, commit, path) — distinct from a dump existing but
// returning an empty result set.
type NoDumpFoundError struct {
	RepositoryID int64
	Commit       string
	Path         string
}

func (e *NoDumpFoundError) Error() string {
	return fmt.Sprintf("no dump found for repository %d at commit %s covering %q", e.RepositoryID, e.Commit, e.Path)
}

// NewNoDumpFoundError builds a NoDumpFoundError for the given query coordinates.
func NewNoDumpFoundError(repositoryID int64, commit, path string) *NoDumpFoundError {
	return &NoDumpFoundError{RepositoryID: repositoryID, Commit: commit, Path: path}
}

// DumpGoneError signals a pagination cursor referencing a dump that no
// longer exists. Callers must treat this as an empty page, not an error
// surfaced to the client.
type DumpGoneError struct {
	DumpID int64
}

func (e *DumpGoneError) Error() string {
	return fmt.Sprintf("dump %d referenced by cursor no longer exists", e.DumpID)
}

func NewDumpGoneError(dumpID int64) *DumpGoneError {
	return &DumpGoneError{DumpID: dumpID}
}

// StoreUnavailableError wraps a transient I/O failure from the per-dump
// store or the metadata store. It is never retried inside the core.
type StoreUnavailableError struct {
	Store string
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s store unavailable: %v", e.Store, e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Cause
}

func NewStoreUnavailableError(store string, cause error) *StoreUnavailableError {
	return &StoreUnavailableError{Store: store, Cause: cause}
}

// CursorInvalidError signals a malformed or version-incompatible pagination
// cursor. Surfaced to the caller as a client error.
type CursorInvalidError struct {
	Reason string
}

func (e *CursorInvalidError) Error() string {
	return fmt.Sprintf("invalid pagination cursor: %s", e.Reason)
}

func NewCursorInvalidError(reason string) *CursorInvalidError {
	return &CursorInvalidError{Reason: reason}
}

// InternalError wraps an invariant violation discovered while walking a
// dump's on-disk graph — e.g. a range referencing a moniker id the
// document never declared.
type InternalError struct {
	Invariant string
	Cause     error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal invariant violated (%s): %v", e.Invariant, e.Cause)
	}
	return fmt.Sprintf("internal invariant violated: %s", e.Invariant)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(invariant string, cause error) *InternalError {
	return &InternalError{Invariant: invariant, Cause: cause}
}

// IsNoDumpFound reports whether err is (or wraps) a NoDumpFoundError.
func IsNoDumpFound(err error) bool {
	var e *NoDumpFoundError
	return errors.As(err, &e)
}

// IsDumpGone reports whether err is (or wraps) a DumpGoneError.
func IsDumpGone(err error) bool {
	var e *DumpGoneError
	return errors.As(err, &e)
}

// IsStoreUnavailable reports whether err is (or wraps) a StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var e *StoreUnavailableError
	return errors.As(err, &e)
}

// IsCursorInvalid reports whether err is (or wraps) a CursorInvalidError.
func IsCursorInvalid(err error) bool {
	var e *CursorInvalidError
	return errors.As(err, &e)
}

// IsInternal reports whether err is (or wraps) an InternalError.
func IsInternal(err error) bool {
	var e *InternalError
	return errors.As(err, &e)
}

// IsCancelled reports whether err is (or wraps) context cancellation.
// Cancellation takes precedence over concurrent store errors in fan-out
// aggregation (spec §5): callers should check this before classifying an
// aggregate error by any other kind.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// FirstNonCancelled returns the first error in errs that is not a
// cancellation, or the first error if every one of them is a cancellation,
// or nil if errs is empty. This implements the fan-out failure containment
// rule of spec §5: "collapse to the first non-cancellation error."
func FirstNonCancelled(errs ...error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		if !IsCancelled(err) {
			return err
		}
	}
	return first
}
