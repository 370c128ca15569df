// Package config loads service settings from BANDROOM_* environment
// variables, optionally layered over a YAML file named by
// BANDROOM_CONFIG_FILE. Environment values win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "BANDROOM_"

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

// Group-profile fan-out modes.
const (
	GroupSyncIndex = "index"
	GroupSyncScan  = "scan"
)

type Config struct {
	ServerAddress  string        `yaml:"server_address"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`

	StoreBackend string `yaml:"store_backend"`

	FirebaseProjectID       string `yaml:"firebase_project_id"`
	FirebaseCredentialsFile string `yaml:"firebase_credentials_file"`
	FirebaseCredentialsJSON string `yaml:"firebase_credentials_json"`
	StorageBucket           string `yaml:"storage_bucket"`

	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`
	MongoTLS        bool   `yaml:"mongo_tls"`

	// DataDir and SnapshotFile locate the memory backend's JSON snapshot.
	// An empty SnapshotFile keeps the memory store purely in process.
	DataDir      string `yaml:"data_dir"`
	SnapshotFile string `yaml:"snapshot_file"`

	AdminJWTSecret string `yaml:"admin_jwt_secret"`

	NotificationLocale string `yaml:"notification_locale"`
	SkipLastEditor     bool   `yaml:"skip_last_editor"`
	MaxConcurrentSends int    `yaml:"max_concurrent_sends"`

	GroupSyncMode string `yaml:"group_sync_mode"`

	// VerifyAuthDeletion makes the deletion cascade confirm with the identity
	// provider that the account is really gone before erasing data.
	VerifyAuthDeletion bool   `yaml:"verify_auth_deletion"`
	PurgeUserObjects   bool   `yaml:"purge_user_objects"`
	UserObjectPrefix   string `yaml:"user_object_prefix"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ServerAddress:      ":8080",
		LogLevel:           "info",
		LogFormat:          "json",
		HandlerTimeout:     60 * time.Second,
		StoreBackend:       BackendFirestore,
		MongoDatabase:      "bandroom",
		MongoCollection:    "documents",
		DataDir:            "./data",
		NotificationLocale: "ja",
		MaxConcurrentSends: 16,
		GroupSyncMode:      GroupSyncIndex,
		UserObjectPrefix:   "users",
	}
}

// Load reads the optional YAML file, then the environment, then validates.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv(envPrefix + "CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	e := &envReader{}

	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.HandlerTimeout = e.duration("HANDLER_TIMEOUT", c.HandlerTimeout)

	c.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", c.StoreBackend))

	c.FirebaseProjectID = getEnv("FIREBASE_PROJECT_ID", c.FirebaseProjectID)
	c.FirebaseCredentialsFile = getEnv("FIREBASE_CREDENTIALS_FILE", c.FirebaseCredentialsFile)
	c.FirebaseCredentialsJSON = getEnv("FIREBASE_CREDENTIALS_JSON", c.FirebaseCredentialsJSON)
	c.StorageBucket = getEnv("STORAGE_BUCKET", c.StorageBucket)

	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.MongoCollection = getEnv("MONGO_COLLECTION", c.MongoCollection)
	c.MongoTLS = e.boolean("MONGO_TLS", c.MongoTLS)

	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.SnapshotFile = getEnv("SNAPSHOT_FILE", c.SnapshotFile)

	c.AdminJWTSecret = getEnv("ADMIN_JWT_SECRET", c.AdminJWTSecret)

	c.NotificationLocale = getEnv("NOTIFICATION_LOCALE", c.NotificationLocale)
	c.SkipLastEditor = e.boolean("SKIP_LAST_EDITOR", c.SkipLastEditor)
	c.MaxConcurrentSends = e.integer("MAX_CONCURRENT_SENDS", c.MaxConcurrentSends)

	c.GroupSyncMode = strings.ToLower(getEnv("GROUP_SYNC_MODE", c.GroupSyncMode))

	c.VerifyAuthDeletion = e.boolean("VERIFY_AUTH_DELETION", c.VerifyAuthDeletion)
	c.PurgeUserObjects = e.boolean("PURGE_USER_OBJECTS", c.PurgeUserObjects)
	c.UserObjectPrefix = getEnv("USER_OBJECT_PREFIX", c.UserObjectPrefix)

	return errors.Join(e.errs...)
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore, BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("config: mongo backend requires BANDROOM_MONGO_URI")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	switch c.GroupSyncMode {
	case GroupSyncIndex, GroupSyncScan:
	default:
		return fmt.Errorf("config: unknown group sync mode %q", c.GroupSyncMode)
	}
	if c.MaxConcurrentSends <= 0 {
		return fmt.Errorf("config: max concurrent sends must be positive, got %d", c.MaxConcurrentSends)
	}
	if c.HandlerTimeout <= 0 {
		return fmt.Errorf("config: handler timeout must be positive, got %s", c.HandlerTimeout)
	}
	if c.PurgeUserObjects && c.StorageBucket == "" {
		return errors.New("config: purging user objects requires BANDROOM_STORAGE_BUCKET")
	}
	return nil
}

// NeedsFirebase reports whether the Firebase app has to be initialised.
func (c *Config) NeedsFirebase() bool {
	return c.StoreBackend == BackendFirestore || c.VerifyAuthDeletion || c.PurgeUserObjects || c.FirebaseProjectID != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(envPrefix + key); exists {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and collects malformed values.
type envReader struct {
	errs []error
}

func (e *envReader) boolean(key string, def bool) bool {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s%s: %w", envPrefix, key, err))
		return def
	}
	return v
}

func (e *envReader) integer(key string, def int) int {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s%s: %w", envPrefix, key, err))
		return def
	}
	return v
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s%s: %w", envPrefix, key, err))
		return def
	}
	return v
}
