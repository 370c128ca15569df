package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a process-local document tree with Firestore-like merge
// semantics. It backs the local emulator and every synchronizer test.
type MemoryStore struct {
	subscriptions

	mu      sync.RWMutex
	docs    map[string]map[string]any
	persist *JSONStore
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

// OpenMemoryStore returns a store that loads from and saves to persist.
func OpenMemoryStore(persist *JSONStore) (*MemoryStore, error) {
	docs, err := persist.Load()
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", persist.Path(), err)
	}
	return &MemoryStore{docs: docs, persist: persist}, nil
}

func (s *MemoryStore) Get(_ context.Context, path string) (Snapshot, error) {
	if !IsDocumentPath(path) {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(path), nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, fields ...Field) error {
	if !IsDocumentPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	s.mu.Lock()
	before := s.snapshotLocked(path)
	data, ok := s.docs[path]
	if !ok {
		data = map[string]any{}
		s.docs[path] = data
	}
	for _, f := range fields {
		applyField(data, f)
	}
	after := s.snapshotLocked(path)
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(ctx, []pendingWrite{{path: path, before: before, after: after}})
	return nil
}

func (s *MemoryStore) ListIDs(_ context.Context, collection string) ([]string, error) {
	if !IsCollectionPath(collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for path := range s.docs {
		if Parent(path) == collection {
			ids = append(ids, ID(path))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) DeleteRecursive(ctx context.Context, path string) error {
	if !IsDocumentPath(path) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	s.mu.Lock()
	var removed []pendingWrite
	for p := range s.docs {
		if Within(p, path) {
			removed = append(removed, pendingWrite{path: p, before: s.snapshotLocked(p), after: Missing(p)})
			delete(s.docs, p)
		}
	}
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].path < removed[j].path })
	s.notify(ctx, removed)
	return nil
}

// Paths lists every stored document path, sorted.
func (s *MemoryStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for p := range s.docs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *MemoryStore) snapshotLocked(path string) Snapshot {
	data, ok := s.docs[path]
	if !ok {
		return Missing(path)
	}
	return Snapshot{Path: path, Exists: true, Data: cloneMap(data)}
}

func (s *MemoryStore) saveLocked() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Save(s.docs); err != nil {
		return fmt.Errorf("storage: save %s: %w", s.persist.Path(), err)
	}
	return nil
}
