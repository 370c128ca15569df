package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BANDROOM_CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, BackendFirestore, cfg.StoreBackend)
	assert.Equal(t, GroupSyncIndex, cfg.GroupSyncMode)
	assert.Equal(t, "ja", cfg.NotificationLocale)
	assert.False(t, cfg.SkipLastEditor)
	assert.Equal(t, 16, cfg.MaxConcurrentSends)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bandroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_backend: memory
notification_locale: en
max_concurrent_sends: 4
handler_timeout: 5s
skip_last_editor: true
`), 0o600))
	t.Setenv("BANDROOM_CONFIG_FILE", path)
	t.Setenv("BANDROOM_MAX_CONCURRENT_SENDS", "32")
	t.Setenv("BANDROOM_GROUP_SYNC_MODE", "SCAN")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "en", cfg.NotificationLocale)
	assert.Equal(t, 32, cfg.MaxConcurrentSends)
	assert.Equal(t, 5*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, GroupSyncScan, cfg.GroupSyncMode)
	assert.True(t, cfg.SkipLastEditor)
}

func TestLoad_UnknownFileKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bandroom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("no_such_key: 1\n"), 0o600))
	t.Setenv("BANDROOM_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedEnv(t *testing.T) {
	t.Setenv("BANDROOM_CONFIG_FILE", "")
	t.Setenv("BANDROOM_SKIP_LAST_EDITOR", "sometimes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BANDROOM_SKIP_LAST_EDITOR")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.StoreBackend = "sqlite" }},
		{"mongo without uri", func(c *Config) { c.StoreBackend = BackendMongo }},
		{"unknown sync mode", func(c *Config) { c.GroupSyncMode = "both" }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentSends = 0 }},
		{"zero timeout", func(c *Config) { c.HandlerTimeout = 0 }},
		{"purge without bucket", func(c *Config) { c.PurgeUserObjects = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Defaults()
	cfg.StoreBackend = BackendMongo
	cfg.MongoURI = "mongodb://localhost:27017"
	assert.NoError(t, cfg.Validate())
}
