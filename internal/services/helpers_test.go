package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

// change builds a trigger.Change; a nil map stands for a missing document.
func change(path string, before, after map[string]any) trigger.Change {
	return trigger.Change{Path: path, Before: snapshot(path, before), After: snapshot(path, after)}
}

func snapshot(path string, data map[string]any) storage.Snapshot {
	if data == nil {
		return storage.Missing(path)
	}
	return storage.Snapshot{Path: path, Exists: true, Data: data}
}

// put replaces top-level fields of a document in the store.
func put(t *testing.T, s storage.Store, path string, data map[string]any) {
	t.Helper()
	fields := make([]storage.Field, 0, len(data))
	for k, v := range data {
		fields = append(fields, storage.Field{Path: storage.FieldPath{k}, Value: v})
	}
	require.NoError(t, s.Set(context.Background(), path, fields...))
}

func get(t *testing.T, s storage.Store, path string) storage.Snapshot {
	t.Helper()
	snap, err := s.Get(context.Background(), path)
	require.NoError(t, err)
	return snap
}

// recordingStore wraps a store, counts writes per path and can fail reads or
// writes on chosen paths.
type recordingStore struct {
	storage.Store

	mu       sync.Mutex
	writes   map[string]int
	failGet  map[string]bool
	failSet  map[string]bool
	failList bool
}

func newRecordingStore(inner storage.Store) *recordingStore {
	return &recordingStore{
		Store:   inner,
		writes:  map[string]int{},
		failGet: map[string]bool{},
		failSet: map[string]bool{},
	}
}

var errInjected = errors.New("injected failure")

func (s *recordingStore) Get(ctx context.Context, path string) (storage.Snapshot, error) {
	s.mu.Lock()
	fail := s.failGet[path]
	s.mu.Unlock()
	if fail {
		return storage.Snapshot{}, errInjected
	}
	return s.Store.Get(ctx, path)
}

func (s *recordingStore) Set(ctx context.Context, path string, fields ...storage.Field) error {
	s.mu.Lock()
	fail := s.failSet[path]
	if !fail {
		s.writes[path]++
	}
	s.mu.Unlock()
	if fail {
		return errInjected
	}
	return s.Store.Set(ctx, path, fields...)
}

func (s *recordingStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	if s.failList {
		return nil, errInjected
	}
	return s.Store.ListIDs(ctx, collection)
}

func (s *recordingStore) writesTo(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[path]
}

func (s *recordingStore) totalWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.writes {
		n += c
	}
	return n
}

type push struct {
	Token   string
	Payload Payload
}

// recordingNotifier records pushes and fails tokens listed in fail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []push
	fail map[string]bool
}

func (n *recordingNotifier) Send(_ context.Context, token string, p Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[token] {
		return errors.New("gateway rejected token")
	}
	n.sent = append(n.sent, push{Token: token, Payload: p})
	return nil
}

// tokens returns the sorted tokens of pushes of one kind.
func (n *recordingNotifier) tokens(kind PayloadKind) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, p := range n.sent {
		if p.Payload.Kind == kind {
			out = append(out, p.Token)
		}
	}
	sort.Strings(out)
	return out
}
