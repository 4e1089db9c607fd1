package sheaf

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrFolderMessage(t *testing.T) {
	err := &ErrFolder{Dir: "/data/NE555", Reason: "multiple markdown files found: a.md, b.md"}
	msg := err.Error()
	if !strings.Contains(msg, "/data/NE555") || !strings.Contains(msg, "a.md, b.md") {
		t.Errorf("message = %q", msg)
	}
}

func TestErrStoreUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &ErrStore{Op: "ping", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("ErrStore should unwrap to the inner error")
	}
	if !strings.Contains(err.Error(), "ping") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestErrEmptyDocumentWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: /data/X/X.md", ErrEmptyDocument)
	if !errors.Is(wrapped, ErrEmptyDocument) {
		t.Error("wrapped empty-document error lost its identity")
	}
}

func TestErrHTTPMessage(t *testing.T) {
	err := &ErrHTTP{Status: 429, Body: `{"error":"rate limit"}`}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("message = %q", err.Error())
	}
}
