package sheaf

import (
	"errors"
	"fmt"
)

// ErrEmptyDocument is returned when a markdown file contains no chunkable
// content. An empty document is a per-document failure, never silently
// accepted as zero chunks.
var ErrEmptyDocument = errors.New("document has no chunkable content")

// ErrFolder reports a folder that failed datasheet-layout validation
// (no markdown file, multiple markdown files, unreadable directory).
type ErrFolder struct {
	Dir    string
	Reason string
}

func (e *ErrFolder) Error() string {
	return fmt.Sprintf("%s: %s", e.Dir, e.Reason)
}

// ErrStore wraps a failure from the content store.
type ErrStore struct {
	Op  string
	Err error
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *ErrStore) Unwrap() error { return e.Err }

// ErrHTTP reports a non-2xx response from an embedding endpoint.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
