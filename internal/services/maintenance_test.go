package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/storage"
)

func newMaintenance(store storage.Store) *Maintenance {
	return NewMaintenance(store, NewTokenSync(store, nil), NewMembershipSync(store, nil), nil)
}

func TestMaintenance_ReindexRebuildsMemberIndex(t *testing.T) {
	store := storage.NewMemoryStore()
	seedGroupUsers(t, store)
	put(t, store, "Groups/G", map[string]any{"GroupName": "Old"})
	put(t, store, "Groups/Z", map[string]any{"GroupName": "Empty"})
	put(t, store, "Groups/G/Members/MemberIndex", map[string]any{"gone": true, "A": true})
	put(t, store, "Groups/Z/Members/MemberIndex", map[string]any{"stale": true})

	res, err := newMaintenance(store).Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReindexResult{Users: 3, Groups: 3, Entries: 4, Removed: 2}, res)

	done := storage.IndexCompleteField
	assert.Equal(t, map[string]any{"A": true, "C": true, done: true}, get(t, store, "Groups/G/Members/MemberIndex").Data)
	assert.Equal(t, map[string]any{"B": true, "C": true, done: true}, get(t, store, "Groups/H/Members/MemberIndex").Data)
	assert.Equal(t, map[string]any{done: true}, get(t, store, "Groups/Z/Members/MemberIndex").Data)

	again, err := newMaintenance(store).Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReindexResult{Users: 3, Groups: 3, Entries: 4}, again)
}

func TestMaintenance_ResyncRepublishesTokens(t *testing.T) {
	store := storage.NewMemoryStore()
	seedMembership(t, store)
	put(t, store, devicesPath, map[string]any{"d1": device("d1", "t1")})
	put(t, store, "Groups/H/Members/TokenDocument", map[string]any{"A": map[string]any{"stale": "x"}})

	res, err := newMaintenance(store).Resync(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []models.GroupID{"G", "H"}, res.Groups)
	assert.Equal(t, 4, res.TokenWrites)

	assert.Equal(t, map[string]any{"d1": "t1"}, get(t, store, "Groups/H/Members/TokenDocument").Data["A"])
	assert.Equal(t, true, get(t, store, "Groups/G/Members/MemberIndex").Data["A"])
}

func TestMaintenance_ResyncWithoutDevicesClearsTokens(t *testing.T) {
	store := storage.NewMemoryStore()
	seedMembership(t, store)
	put(t, store, "Groups/G/Members/TokenDocument", map[string]any{"A": map[string]any{"d1": "t1"}})

	_, err := newMaintenance(store).Resync(context.Background(), "A")
	require.NoError(t, err)
	assert.NotContains(t, get(t, store, "Groups/G/Members/TokenDocument").Data, "A")
}
