package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Shelf error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrStorageCorrupt    ErrorCode = "STORAGE_CORRUPT"    // 500 (logged, recovered locally)
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrFetchFailed       ErrorCode = "FETCH_FAILED"       // 502
	ErrSearchUnavailable ErrorCode = "SEARCH_UNAVAILABLE" // 503
)

// ShelfError represents a structured error with code, status, and details.
type ShelfError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the wrapped lower-level error, if any. Never rendered to users.
	cause error
}

// Error implements the error interface.
func (e *ShelfError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause so errors.Is/As see through ShelfError.
func (e *ShelfError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ShelfError {
	return &ShelfError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unresolved collection or document.
// kind is "collection" or "document".
func NewNotFound(kind, identifier string) *ShelfError {
	return &ShelfError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewStorageCorrupt describes an unparseable log or aggregate file.
// Store code logs it and degrades; it is not returned from reads.
func NewStorageCorrupt(path string, err error) *ShelfError {
	msg := "storage file is corrupted"
	if err != nil {
		msg = fmt.Sprintf("storage file is corrupted: %v", err)
	}
	return &ShelfError{
		Code:    ErrStorageCorrupt,
		Status:  500,
		Message: msg,
		Details: map[string]any{"path": path},
		cause:   err,
	}
}

// NewFetchFailed creates a 502 error when a URL cannot be turned into a document.
func NewFetchFailed(url string, err error) *ShelfError {
	msg := fmt.Sprintf("failed to fetch %s", url)
	if err != nil {
		msg = fmt.Sprintf("failed to fetch %s: %v", url, err)
	}
	return &ShelfError{
		Code:    ErrFetchFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"url": url},
		cause:   err,
	}
}

// NewSearchUnavailable creates a 503 error when the search storage cannot be
// opened, read, or written.
func NewSearchUnavailable(err error) *ShelfError {
	msg := "search index unavailable"
	if err != nil {
		msg = fmt.Sprintf("search index unavailable: %v", err)
	}
	return &ShelfError{
		Code:    ErrSearchUnavailable,
		Status:  503,
		Message: msg,
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for logging.
func NewInternal(err error) *ShelfError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ShelfError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a ShelfError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *ShelfError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As is a shorthand for errors.As into a *ShelfError.
func As(err error) (*ShelfError, bool) {
	var sErr *ShelfError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}
