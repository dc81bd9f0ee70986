package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/randalmurphal/convlog/pkg/convlog/dispatch"
	"github.com/randalmurphal/convlog/pkg/convlog/listener"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Backends lists every supported store backend.
var Backends = []string{BackendFile, BackendSQLite, BackendRedis, BackendMongo, BackendMemory}

// Settings is the typed daemon configuration.
type Settings struct {
	LogLevel  string `env:"CONVLOG_LOG_LEVEL"`
	LogFormat string `env:"CONVLOG_LOG_FORMAT"`

	Store     StoreSettings
	Bus       BusSettings
	Dispatch  DispatchSettings
	Pending   PendingSettings
	Listeners listener.Description
}

// StoreSettings selects and configures the conversation log backend.
type StoreSettings struct {
	Backend string `env:"CONVLOG_STORE_BACKEND"`

	Dir   string `env:"CONVLOG_STORE_DIR"`
	Fsync bool   `env:"CONVLOG_STORE_FSYNC"`

	SQLitePath string `env:"CONVLOG_SQLITE_PATH"`

	RedisAddr     string `env:"CONVLOG_REDIS_ADDR"`
	RedisPassword string `env:"CONVLOG_REDIS_PASSWORD"`
	RedisDB       int    `env:"CONVLOG_REDIS_DB"`
	RedisPrefix   string `env:"CONVLOG_REDIS_PREFIX"`

	MongoURI        string `env:"CONVLOG_MONGO_URI"`
	MongoDatabase   string `env:"CONVLOG_MONGO_DATABASE"`
	MongoCollection string `env:"CONVLOG_MONGO_COLLECTION"`
}

// BusSettings configures the in-process bus.
type BusSettings struct {
	BufferSize int `env:"CONVLOG_BUS_BUFFER"`

	// NonBlocking drops notifications for listeners whose queue is full
	// instead of stalling the publisher.
	NonBlocking bool `env:"CONVLOG_BUS_NON_BLOCKING"`
}

// DispatchSettings configures the context queue.
type DispatchSettings struct {
	Timeout time.Duration `env:"CONVLOG_DISPATCH_TIMEOUT"`
}

// PendingSettings configures eviction of unscored responses.
type PendingSettings struct {
	// TTL of zero keeps pending responses until scored.
	TTL time.Duration `env:"CONVLOG_PENDING_TTL"`

	// SweepSchedule is a cron spec, e.g. "@every 1m".
	SweepSchedule string `env:"CONVLOG_PENDING_SWEEP"`
}

// DefaultSettings returns the settings used for anything not configured.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:  "info",
		LogFormat: "text",
		Store: StoreSettings{
			Backend:         BackendFile,
			Dir:             "conversations",
			SQLitePath:      "convlog.db",
			RedisAddr:       "localhost:6379",
			RedisPrefix:     "convlog:conversation:",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "convlog",
			MongoCollection: "conversation_lines",
		},
		Bus:      BusSettings{BufferSize: 256},
		Dispatch: DispatchSettings{Timeout: dispatch.DefaultTimeout},
		Pending:  PendingSettings{SweepSchedule: "@every 1m"},
		Listeners: listener.Description{
			Named: map[string]listener.Kind{listener.NameDatabase: listener.KindScoringLogger},
		},
	}
}

// FromConfig overlays cfg on DefaultSettings. A "listeners" section
// replaces the default listeners entirely.
func FromConfig(cfg Config) (Settings, error) {
	s := DefaultSettings()

	s.LogLevel = cfg.String("log_level", s.LogLevel)
	s.LogFormat = cfg.String("log_format", s.LogFormat)

	st := cfg.Sub("store")
	s.Store.Backend = st.String("backend", s.Store.Backend)
	s.Store.Dir = st.String("dir", s.Store.Dir)
	s.Store.Fsync = st.Bool("fsync", s.Store.Fsync)
	s.Store.SQLitePath = st.String("sqlite_path", s.Store.SQLitePath)
	s.Store.RedisAddr = st.String("redis_addr", s.Store.RedisAddr)
	s.Store.RedisPassword = st.String("redis_password", s.Store.RedisPassword)
	s.Store.RedisDB = st.Int("redis_db", s.Store.RedisDB)
	s.Store.RedisPrefix = st.String("redis_prefix", s.Store.RedisPrefix)
	s.Store.MongoURI = st.String("mongo_uri", s.Store.MongoURI)
	s.Store.MongoDatabase = st.String("mongo_database", s.Store.MongoDatabase)
	s.Store.MongoCollection = st.String("mongo_collection", s.Store.MongoCollection)

	s.Bus.BufferSize = cfg.Sub("bus").Int("buffer_size", s.Bus.BufferSize)
	s.Bus.NonBlocking = cfg.Sub("bus").Bool("non_blocking", s.Bus.NonBlocking)
	s.Dispatch.Timeout = cfg.Sub("dispatch").Duration("timeout", s.Dispatch.Timeout)

	p := cfg.Sub("pending")
	s.Pending.TTL = p.Duration("ttl", s.Pending.TTL)
	s.Pending.SweepSchedule = p.String("sweep_schedule", s.Pending.SweepSchedule)

	if cfg.Has("listeners") {
		desc, err := parseListeners(cfg.Sub("listeners"))
		if err != nil {
			return Settings{}, err
		}
		s.Listeners = desc
	}

	return s, nil
}

func parseListeners(cfg Config) (listener.Description, error) {
	desc := listener.Description{Named: map[string]listener.Kind{}}

	for name, v := range cfg.Sub("named").Raw() {
		kind, ok := v.(string)
		if !ok {
			return listener.Description{}, fmt.Errorf("listeners.named.%s: expected a kind name, got %T", name, v)
		}
		desc.Named[name] = listener.Kind(kind)
	}

	if cfg.Has("unnamed") {
		kinds := cfg.StringSlice("unnamed", nil)
		if kinds == nil {
			return listener.Description{}, fmt.Errorf("listeners.unnamed: expected a list of kind names")
		}
		for _, k := range kinds {
			desc.Unnamed = append(desc.Unnamed, listener.Kind(k))
		}
	}
	return desc, nil
}

// ApplyEnv overrides s with any CONVLOG_* variables that are set.
func ApplyEnv(s *Settings) error {
	if err := env.Parse(s); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (s Settings) Validate() error {
	if !slices.Contains(Backends, s.Store.Backend) {
		return fmt.Errorf("store.backend %q: must be one of %s", s.Store.Backend, strings.Join(Backends, ", "))
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	if s.Dispatch.Timeout <= 0 {
		return fmt.Errorf("dispatch.timeout must be positive")
	}
	if s.Pending.TTL < 0 {
		return fmt.Errorf("pending.ttl must not be negative")
	}
	return nil
}

// Level parses LogLevel.
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", s.LogLevel, err)
	}
	return level, nil
}
