// Package storage is the document-store boundary of the sync service. Every
// synchronizer talks to a Store; production uses Firestore, local runs and
// tests use the in-memory store, self-hosted deployments can use MongoDB.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrInvalidPath is returned for paths that do not name a document
	// (odd segment count or empty segments) or a collection.
	ErrInvalidPath = errors.New("storage: invalid path")
)

// Snapshot is the state of one document at one point in time. A missing
// document is a Snapshot with Exists false, never an error.
type Snapshot struct {
	Path   string
	Exists bool
	Data   map[string]any
}

// Missing returns the snapshot of a document that does not exist.
func Missing(path string) Snapshot {
	return Snapshot{Path: path}
}

// ID returns the last path segment.
func (s Snapshot) ID() string {
	return ID(s.Path)
}

// FieldPath addresses a possibly nested field inside a document.
type FieldPath []string

func (p FieldPath) String() string {
	return strings.Join(p, ".")
}

// Field is one merge-write operation: the value at Path is replaced as a
// whole. Fields of the document not named keep their values.
type Field struct {
	Path  FieldPath
	Value any
}

type deleteSentinel struct{}

// Delete used as a Field value removes the field.
var Delete any = deleteSentinel{}

// IsDelete reports whether v is the Delete sentinel.
func IsDelete(v any) bool {
	_, ok := v.(deleteSentinel)
	return ok
}

// Store is the capability every handler needs from the document database.
type Store interface {
	// Get reads one document.
	Get(ctx context.Context, path string) (Snapshot, error)
	// Set merge-writes fields into a document, creating it when missing.
	Set(ctx context.Context, path string, fields ...Field) error
	// ListIDs returns the ids of the documents directly inside a collection.
	ListIDs(ctx context.Context, collection string) ([]string, error)
	// DeleteRecursive removes a document and every document below it.
	DeleteRecursive(ctx context.Context, path string) error
}

// WriteFunc observes a completed write. before and after describe the
// document on either side of the write; a deleted document has an after
// snapshot with Exists false.
type WriteFunc func(ctx context.Context, path string, before, after Snapshot) error

// Watcher is implemented by stores that can report their own writes, so a
// local process can drive triggers without the hosting platform.
type Watcher interface {
	Subscribe(fn WriteFunc)
	OnSubscriberError(fn SubscriberErrorFunc)
}
