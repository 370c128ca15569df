package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandroom/backend/internal/models"
	"github.com/bandroom/backend/internal/services"
	"github.com/bandroom/backend/internal/storage"
	"github.com/bandroom/backend/internal/trigger"
)

type dispatchCall struct {
	path          string
	before, after storage.Snapshot
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, path string, before, after storage.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{path: path, before: before, after: after})
	return d.err
}

type fakeAccounts struct {
	mu      sync.Mutex
	deleted []models.UserID
}

func (a *fakeAccounts) HandleDeleted(_ context.Context, uid models.UserID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, uid)
}

type fakeMaintainer struct {
	resynced []models.UserID
	err      error
}

func (m *fakeMaintainer) Reindex(context.Context) (services.ReindexResult, error) {
	return services.ReindexResult{Users: 2, Groups: 1, Entries: 2}, m.err
}

func (m *fakeMaintainer) Resync(_ context.Context, uid models.UserID) (services.ResyncResult, error) {
	m.resynced = append(m.resynced, uid)
	return services.ResyncResult{Groups: []models.GroupID{"g1"}, TokenWrites: 1}, m.err
}

type failingStore struct{ storage.Store }

func (failingStore) Get(context.Context, string) (storage.Snapshot, error) {
	return storage.Snapshot{}, errors.New("unavailable")
}

const secret = "handler-secret"

type fixture struct {
	dispatcher *fakeDispatcher
	accounts   *fakeAccounts
	maint      *fakeMaintainer
	handler    http.Handler
}

func newFixture(store storage.Store, adminSecret string) *fixture {
	f := &fixture{dispatcher: &fakeDispatcher{}, accounts: &fakeAccounts{}, maint: &fakeMaintainer{}}
	f.handler = NewRouter(RouterConfig{
		Events:      NewEventHandler(f.dispatcher, f.accounts, time.Second, nil),
		Admin:       NewAdminHandler(f.maint, time.Second, nil),
		Health:      NewHealthHandler(store, "memory", nil),
		AdminSecret: adminSecret,
	})
	return f
}

func (f *fixture) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const attendanceEvent = `{
  "value": {
    "name": "projects/demo/databases/(default)/documents/Users/u1/MyGroups/g1/MyEvents/e1",
    "fields": {"MyAttendance": {"stringValue": "yes"}}
  }
}`

func TestHealth(t *testing.T) {
	rec := newFixture(storage.NewMemoryStore(), "").do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["backend"])
}

func TestHealth_StoreDown(t *testing.T) {
	rec := newFixture(failingStore{storage.NewMemoryStore()}, "").do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}

func TestFirestoreEvent_Dispatches(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), "")
	rec := f.do(http.MethodPost, "/events/firestore", attendanceEvent, map[string]string{"Ce-Id": "evt-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["request_id"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "evt-1", data["invocation_id"])
	assert.Equal(t, "Users/u1/MyGroups/g1/MyEvents/e1", data["path"])
	assert.Equal(t, string(trigger.StatusCreate), data["status"])

	require.Len(t, f.dispatcher.calls, 1)
	call := f.dispatcher.calls[0]
	assert.Equal(t, "Users/u1/MyGroups/g1/MyEvents/e1", call.path)
	assert.False(t, call.before.Exists)
	assert.Equal(t, "yes", call.after.Data["MyAttendance"])
}

func TestFirestoreEvent_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed", `{"value":`, nil, http.StatusBadRequest},
		{"no document", `{}`, nil, http.StatusBadRequest},
		{"no route", attendanceEvent, trigger.ErrNoRoute, http.StatusNoContent},
		{"handler failure", attendanceEvent, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(storage.NewMemoryStore(), "")
			f.dispatcher.err = tt.err
			rec := f.do(http.MethodPost, "/events/firestore", tt.body, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthDelete(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), "")

	rec := f.do(http.MethodPost, "/events/auth/delete", `{"data":{"uid":"u9"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["data"].(map[string]any)["invocation_id"])
	assert.Equal(t, []models.UserID{"u9"}, f.accounts.deleted)

	rec = f.do(http.MethodPost, "/events/auth/delete", `{"data":{}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.accounts.deleted, 1)
}

func adminToken(t *testing.T, role string) map[string]string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + s}
}

func TestAdmin_NotMountedWithoutSecret(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), "")
	rec := f.do(http.MethodPost, "/admin/reindex", "", adminToken(t, "admin"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_Reindex(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), secret)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/admin/reindex", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/admin/reindex", "", adminToken(t, "member")).Code)

	rec := f.do(http.MethodPost, "/admin/reindex", "", adminToken(t, "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]any)
	assert.EqualValues(t, 2, data["users"])
	assert.EqualValues(t, 2, data["entries"])

	f.maint.err = errors.New("boom")
	rec = f.do(http.MethodPost, "/admin/reindex", "", adminToken(t, "admin"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdmin_Resync(t *testing.T) {
	f := newFixture(storage.NewMemoryStore(), secret)

	rec := f.do(http.MethodPost, "/admin/users/u1/resync", "", adminToken(t, "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.UserID{"u1"}, f.maint.resynced)
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, []any{"g1"}, data["groups"])

	rec = f.do(http.MethodPost, "/admin/users/%20/resync", "", adminToken(t, "admin"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, f.maint.resynced, 1)
}
