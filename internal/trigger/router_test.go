package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/storage"
)

func TestRouter_MatchExtractsParams(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Handle("Users/{userID}/MyAttendance/{groupID}", "attendance", func(context.Context, Change, Params) error { return nil })
	r.Handle("Groups/{groupID}", "group", func(context.Context, Change, Params) error { return nil })

	params, ok := r.Match("Users/u1/MyAttendance/g1")
	require.True(t, ok)
	assert.Equal(t, Params{"userID": "u1", "groupID": "g1"}, params)

	params, ok = r.Match("/Groups/g9/")
	require.True(t, ok)
	assert.Equal(t, "g9", params["groupID"])

	_, ok = r.Match("Groups/g9/Members/MemberDocument")
	assert.False(t, ok)
	_, ok = r.Match("Users/u1/MyDevices/MyDeviceDocument")
	assert.False(t, ok)
}

func TestRouter_DispatchRunsEveryMatchingHandler(t *testing.T) {
	r := NewRouter(nil)
	var calls []string
	r.Handle("Users/{userID}", "first", func(_ context.Context, c Change, p Params) error {
		calls = append(calls, "first:"+p["userID"]+":"+string(c.Status()))
		return nil
	})
	r.Handle("Users/{uid}", "second", func(_ context.Context, _ Change, p Params) error {
		calls = append(calls, "second:"+p["uid"])
		return errors.New("boom")
	})

	after := storage.Snapshot{Path: "Users/u1", Exists: true, Data: map[string]any{}}
	err := r.Dispatch(context.Background(), "Users/u1", storage.Missing("Users/u1"), after)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "second")
	assert.Equal(t, []string{"first:u1:create", "second:u1"}, calls)
}

func TestRouter_DispatchWithoutRoute(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.Handle("Groups/{groupID}", "group", func(context.Context, Change, Params) error { return nil })

	err := r.Dispatch(context.Background(), "Users/u1", storage.Missing("Users/u1"), storage.Missing("Users/u1"))
	assert.ErrorIs(t, err, ErrNoRoute)

	assert.NoError(t, r.DispatchFunc()(context.Background(), "Users/u1", storage.Missing("Users/u1"), storage.Missing("Users/u1")))
}

func TestRouter_DrivenByMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := NewRouter(zap.NewNop())

	var seen []Status
	r.Handle("Groups/{groupID}", "group", func(_ context.Context, c Change, _ Params) error {
		seen = append(seen, c.Status())
		return nil
	})
	store.Subscribe(r.DispatchFunc())

	require.NoError(t, store.Set(ctx, "Groups/g1", storage.Field{Path: storage.FieldPath{"GroupName"}, Value: "A"}))
	require.NoError(t, store.Set(ctx, "Groups/g1", storage.Field{Path: storage.FieldPath{"GroupName"}, Value: "B"}))
	require.NoError(t, store.Set(ctx, "Users/u1", storage.Field{Path: storage.FieldPath{"UserName"}, Value: "x"}))
	require.NoError(t, store.DeleteRecursive(ctx, "Groups/g1"))

	assert.Equal(t, []Status{StatusCreate, StatusUpdate, StatusDelete}, seen)
	assert.ElementsMatch(t, []string{"Groups/{groupID}"}, r.Patterns())
}
