package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

// wired returns a memory store whose writes drive every synchronizer.
func wired(t *testing.T) (*storage.MemoryStore, *recordingNotifier) {
	t.Helper()
	store := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	logger := zap.NewNop()

	tokens := NewTokenSync(store, logger)
	syncs := &Synchronizers{
		Attendance:    NewAttendanceSync(store, logger),
		Performance:   NewPerformanceSync(store, logger),
		Groups:        NewGroupSync(store, logger, false),
		Membership:    NewMembershipSync(store, logger),
		Tokens:        tokens,
		MemberNames:   NewMemberNameSync(store, logger),
		Notifications: NewNotificationService(store, notifier, logger, NotificationOptions{}),
	}
	router := trigger.NewRouter(logger)
	syncs.Register(router)
	store.Subscribe(router.DispatchFunc())
	return store, notifier
}

func set(t *testing.T, store storage.Store, path string, key string, value any) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), path, storage.Field{Path: storage.FieldPath{key}, Value: value}))
}

func TestEndToEnd_AttendanceSkipIfUnchanged(t *testing.T) {
	store, _ := wired(t)

	set(t, store, "Users/A/MyAttendance/G", "eventX", attendance("eventX", 1, "yes"))
	rosterX := "Groups/G/Events/eventX/Attendees/AttendeeDocument"
	assert.Equal(t, map[string]any{
		"AttendeeID": "A", "AttendeeAttendanceType": 1, "AttendeeAttendanceText": "yes",
	}, get(t, store, rosterX).Data["A"])

	// Tamper with the roster so a rewrite would be visible.
	require.NoError(t, store.Set(context.Background(), rosterX,
		storage.Field{Path: storage.FieldPath{"A", "marker"}, Value: true}))

	set(t, store, "Users/A/MyAttendance/G", "eventY", attendance("eventY", 2, "no"))
	assert.Equal(t, true, get(t, store, rosterX).Data["A"].(map[string]any)["marker"])
	assert.True(t, get(t, store, "Groups/G/Events/eventY/Attendees/AttendeeDocument").Exists)
}

func TestEndToEnd_DeviceTokensFollowDevices(t *testing.T) {
	store, _ := wired(t)

	set(t, store, "Users/A/MyGroups/MyGroupDocument", "G", myGroup("G", "Band"))
	set(t, store, devicesPath, "d1", device("d1", "t1"))
	assert.Equal(t, map[string]any{"A": map[string]any{"d1": "t1"}}, get(t, store, "Groups/G/Members/TokenDocument").Data)

	require.NoError(t, store.Set(context.Background(), devicesPath,
		storage.Field{Path: storage.FieldPath{"d1"}, Value: storage.Delete}))
	assert.NotContains(t, get(t, store, "Groups/G/Members/TokenDocument").Data, "A")
}

func TestEndToEnd_JoinThenNotifyThenRename(t *testing.T) {
	store, notifier := wired(t)

	set(t, store, devicesPath, "d1", device("d1", "t1"))
	set(t, store, "Users/A", "UserName", "Ann")
	set(t, store, "Users/A/MyGroups/MyGroupDocument", "G", myGroup("G", "Band"))
	set(t, store, "Groups/G", "GroupName", "Band")

	// Joining seeded the token document from the existing devices.
	assert.Equal(t, map[string]any{"d1": "t1"}, get(t, store, "Groups/G/Members/TokenDocument").Data["A"])
	assert.Equal(t, map[string]any{"A": true}, get(t, store, "Groups/G/Members/MemberIndex").Data)

	set(t, store, "Groups/G/Mails/m1", "OwnerName", "Conductor")
	assert.Equal(t, []string{"t1"}, notifier.tokens(PayloadDisplay))
	assert.Equal(t, "新しい連絡が投稿されました", notifier.sent[0].Payload.Body)

	set(t, store, "Groups/G", "GroupNameEng", "The Band")
	entry := get(t, store, "Users/A/MyGroups/MyGroupDocument").Data["G"].(map[string]any)
	assert.Equal(t, "The Band", entry["MyGroupNameEng"])
	assert.Equal(t, map[string]any{"A": true, storage.IndexCompleteField: true},
		get(t, store, "Groups/G/Members/MemberIndex").Data)

	set(t, store, "Users/A", "UserName", "Anne")
	assert.Equal(t, "Anne", get(t, store, "Groups/G/Members/MemberDocument").Data["A"].(map[string]any)["MemberName"])
}

func TestEndToEnd_AccountDeletionCleansDerivedDocuments(t *testing.T) {
	store, _ := wired(t)

	set(t, store, "Users/A", "UserName", "Ann")
	set(t, store, devicesPath, "d1", device("d1", "t1"))
	set(t, store, "Users/A/MyGroups/MyGroupDocument", "G", myGroup("G", "Band"))
	require.Contains(t, get(t, store, "Groups/G/Members/TokenDocument").Data, "A")

	accounts := NewAccountService(store, nil, AccountOptions{})
	_, err := accounts.DeleteUser(context.Background(), "A")
	require.NoError(t, err)

	assert.NotContains(t, get(t, store, "Groups/G/Members/TokenDocument").Data, "A")
	assert.NotContains(t, get(t, store, "Groups/G/Members/MemberIndex").Data, "A")
}
