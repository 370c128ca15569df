// Package trigger turns document writes into handler invocations: it
// classifies a write, matches its path against registered patterns and
// decodes the event payloads the hosting platform delivers.
package trigger

import "github.com/bandroom/backend/internal/storage"

// Status is the kind of write a change represents.
type Status string

const (
	StatusCreate Status = "create"
	StatusUpdate Status = "update"
	StatusDelete Status = "delete"
)

// Classify derives the write kind from the existence of the document on
// either side of the write. A write that leaves no document is a delete.
func Classify(beforeExists, afterExists bool) Status {
	switch {
	case !afterExists:
		return StatusDelete
	case !beforeExists:
		return StatusCreate
	default:
		return StatusUpdate
	}
}

// Change is one observed write.
type Change struct {
	Path   string
	Before storage.Snapshot
	After  storage.Snapshot
}

func (c Change) Status() Status {
	return Classify(c.Before.Exists, c.After.Exists)
}

// BeforeData returns the prior document data, empty when it did not exist.
func (c Change) BeforeData() map[string]any {
	if !c.Before.Exists || c.Before.Data == nil {
		return map[string]any{}
	}
	return c.Before.Data
}

// AfterData returns the new document data, empty when it was deleted.
func (c Change) AfterData() map[string]any {
	if !c.After.Exists || c.After.Data == nil {
		return map[string]any{}
	}
	return c.After.Data
}
