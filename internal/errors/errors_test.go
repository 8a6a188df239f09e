package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestShelfError_Error(t *testing.T) {
	err := &ShelfError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "document not found",
	}

	expected := "NOT_FOUND: document not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("query is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "query is required" {
		t.Errorf("Message = %q, want %q", err.Message, "query is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("collection", "ruby")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Message != "collection not found: ruby" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["identifier"] != "ruby" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "ruby")
	}
	if err.Details["kind"] != "collection" {
		t.Errorf("Details[kind] = %v, want %q", err.Details["kind"], "collection")
	}
}

func TestNewStorageCorrupt(t *testing.T) {
	cause := fmt.Errorf("yaml: line 1: did not find expected node content")
	err := NewStorageCorrupt("/tmp/ruby/index.yml", cause)

	if err.Code != ErrStorageCorrupt {
		t.Errorf("Code = %q, want %q", err.Code, ErrStorageCorrupt)
	}
	if err.Details["path"] != "/tmp/ruby/index.yml" {
		t.Errorf("Details[path] = %v", err.Details["path"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
}

func TestNewSearchUnavailable(t *testing.T) {
	err := NewSearchUnavailable(fs.ErrPermission)

	if err.Code != ErrSearchUnavailable {
		t.Errorf("Code = %q, want %q", err.Code, ErrSearchUnavailable)
	}
	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	if !stderrors.Is(err, fs.ErrPermission) {
		t.Error("expected fs.ErrPermission to be reachable via errors.Is")
	}
}

func TestNewFetchFailed(t *testing.T) {
	err := NewFetchFailed("https://example.com", fmt.Errorf("status 500"))

	if err.Code != ErrFetchFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrFetchFailed)
	}
	if err.Status != 502 {
		t.Errorf("Status = %d, want 502", err.Status)
	}
	if err.Message != "failed to fetch https://example.com: status 500" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		originalErr := fmt.Errorf("disk full")
		err := NewInternal(originalErr)

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Status != 500 {
			t.Errorf("Status = %d, want 500", err.Status)
		}
		// Message should be generic (not leak internal details)
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "disk full" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "disk full")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		err := NewNotFound("document", "x")
		if !Is(err, ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		err := NewNotFound("document", "x")
		if Is(err, ErrFetchFailed) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("non-ShelfError", func(t *testing.T) {
		err := fmt.Errorf("plain error")
		if Is(err, ErrNotFound) {
			t.Error("Is() = true, want false for non-ShelfError")
		}
	})

	t.Run("wrapped ShelfError", func(t *testing.T) {
		inner := NewSearchUnavailable(nil)
		wrapped := fmt.Errorf("search: %w", inner)
		if !Is(wrapped, ErrSearchUnavailable) {
			t.Error("Is() = false, want true for wrapped ShelfError")
		}
		if Is(wrapped, ErrNotFound) {
			t.Error("Is() = true, want false for wrong code on wrapped ShelfError")
		}
	})
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewNotFound("collection", "c"))
	sErr, ok := As(wrapped)
	if !ok {
		t.Fatal("As() ok = false, want true")
	}
	if sErr.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", sErr.Code, ErrNotFound)
	}

	if _, ok := As(fmt.Errorf("plain")); ok {
		t.Error("As() ok = true for plain error")
	}
}
