package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/storage"
)

const attendancePath = "Users/A/MyAttendance/G"

func attendance(eid string, typ int, text string) map[string]any {
	return map[string]any{"EventID": eid, "MyAttendanceType": typ, "MyAttendanceText": text}
}

func TestAttendanceSync_CreateWritesEveryEntry(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore(storage.NewMemoryStore())
	s := NewAttendanceSync(store, zap.NewNop())

	res, err := s.Sync(ctx, "A", "G", change(attendancePath, nil, map[string]any{
		"eventX": attendance("eventX", 1, "yes"),
		"eventY": attendance("eventY", 2, "late"),
	}))
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Written: 2}, res)

	roster := get(t, store, "Groups/G/Events/eventX/Attendees/AttendeeDocument")
	assert.Equal(t, map[string]any{
		"A": map[string]any{"AttendeeID": "A", "AttendeeAttendanceType": 1, "AttendeeAttendanceText": "yes"},
	}, roster.Data)
}

func TestAttendanceSync_UnchangedEntriesAreNotWritten(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore(storage.NewMemoryStore())
	s := NewAttendanceSync(store, nil)

	before := map[string]any{
		"eventX": attendance("eventX", 1, "yes"),
		"eventY": attendance("eventY", 0, ""),
	}
	after := map[string]any{
		"eventX": attendance("eventX", 1, "yes"),
		"eventY": attendance("eventY", 2, "sick"),
		"eventZ": attendance("eventZ", 1, ""),
	}
	res, err := s.Sync(ctx, "A", "G", change(attendancePath, before, after))
	require.NoError(t, err)

	assert.Equal(t, SyncResult{Written: 2, Skipped: 1}, res)
	assert.Zero(t, store.writesTo("Groups/G/Events/eventX/Attendees/AttendeeDocument"))
	assert.Equal(t, 1, store.writesTo("Groups/G/Events/eventY/Attendees/AttendeeDocument"))
	assert.Equal(t, 1, store.writesTo("Groups/G/Events/eventZ/Attendees/AttendeeDocument"))
}

func TestAttendanceSync_TextOnlyChangeIsWritten(t *testing.T) {
	store := newRecordingStore(storage.NewMemoryStore())
	s := NewAttendanceSync(store, nil)

	res, err := s.Sync(context.Background(), "A", "G", change(attendancePath,
		map[string]any{"e1": attendance("e1", 1, "yes")},
		map[string]any{"e1": attendance("e1", 1, "yes, late")}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
}

func TestAttendanceSync_DeleteIsNoop(t *testing.T) {
	store := newRecordingStore(storage.NewMemoryStore())
	s := NewAttendanceSync(store, nil)

	res, err := s.Sync(context.Background(), "A", "G", change(attendancePath,
		map[string]any{"e1": attendance("e1", 1, "yes")}, nil))
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, res)
	assert.Zero(t, store.totalWrites())
}

func TestAttendanceSync_RemovedEntryKeepsRoster(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore(storage.NewMemoryStore())
	s := NewAttendanceSync(store, nil)

	_, err := s.Sync(ctx, "A", "G", change(attendancePath, nil, map[string]any{"e1": attendance("e1", 1, "yes")}))
	require.NoError(t, err)
	_, err = s.Sync(ctx, "A", "G", change(attendancePath, map[string]any{"e1": attendance("e1", 1, "yes")}, map[string]any{}))
	require.NoError(t, err)

	roster := get(t, store, "Groups/G/Events/e1/Attendees/AttendeeDocument")
	assert.Contains(t, roster.Data, "A")
}

func TestAttendanceSync_WriteFailureIsReturned(t *testing.T) {
	store := newRecordingStore(storage.NewMemoryStore())
	store.failSet["Groups/G/Events/e1/Attendees/AttendeeDocument"] = true
	s := NewAttendanceSync(store, nil)

	res, err := s.Sync(context.Background(), "A", "G", change(attendancePath, nil, map[string]any{
		"e1": attendance("e1", 1, "yes"),
		"e2": attendance("e2", 1, "yes"),
	}))
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 1, store.writesTo("Groups/G/Events/e2/Attendees/AttendeeDocument"))
}

func TestAttendanceSync_HandleUsesPathParams(t *testing.T) {
	store := storage.NewMemoryStore()
	s := NewAttendanceSync(store, nil)

	err := s.Handle(context.Background(),
		change("Users/u9/MyAttendance/g9", nil, map[string]any{"e1": attendance("e1", 3, "")}),
		map[string]string{"userID": "u9", "groupID": "g9"})
	require.NoError(t, err)

	roster := get(t, store, "Groups/g9/Events/e1/Attendees/AttendeeDocument")
	assert.Contains(t, roster.Data, "u9")
}
