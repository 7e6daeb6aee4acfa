// Package config contains all knobs and defaults used to configure the feed
// and counter layer and the datastore underneath it.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	DefaultMaxInValues        = 10
	DefaultMaxConcurrentReads = 100
	DefaultCacheMaxSize       = 10000
	DefaultCacheTTL           = 10 * time.Second

	DefaultFollowingLimit    = 100
	DefaultFeedPageSize      = 20
	DefaultPopularLimit      = 50
	DefaultSocialGraphLimit  = 100
	DefaultNotificationLimit = 50
)

var engines = []string{"memory", "sqlite", "postgres", "mysql", "firestore"}

type LogConfig struct {
	// Format is the log format to use in the log output (e.g. 'text' or 'json')
	Format string

	// Level is the log level to use in the log output (e.g. 'none', 'debug', or 'info')
	Level string
}

// DatastoreConfig defines the datastore the layer reads from and writes to.
type DatastoreConfig struct {
	// Engine is the datastore engine to use (e.g. 'memory', 'sqlite', 'postgres', 'mysql', 'firestore')
	Engine   string
	URI      string
	Username string
	Password string

	// ProjectID is the Google Cloud project of the 'firestore' engine.
	ProjectID string
	// DatabaseID is the Firestore database, '(default)' when empty.
	DatabaseID string

	// MaxInValues is the fan-in limit of a membership query.
	MaxInValues int

	// MaxConcurrentReads bounds the reads in flight across a process. Zero disables the bound.
	MaxConcurrentReads uint32

	// MaxOpenConns is the maximum number of open connections to the database.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of connections to the datastore in the idle connection
	// pool.
	MaxIdleConns int

	// ConnMaxIdleTime is the maximum amount of time a connection to the datastore may be idle.
	ConnMaxIdleTime time.Duration

	// ConnMaxLifetime is the maximum amount of time a connection to the datastore may be reused.
	ConnMaxLifetime time.Duration

	// Metrics exports database connection pool metrics.
	Metrics bool
}

// CacheConfig defines the read cache in front of the datastore.
type CacheConfig struct {
	Enabled bool
	MaxSize int64
	TTL     time.Duration
}

// FeedConfig bounds the reads of the feed and list queries.
type FeedConfig struct {
	FollowingLimit    int
	PageSize          int
	PopularLimit      int
	SocialGraphLimit  int
	NotificationLimit int
}

type TraceConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
	ServiceName  string
}

type Config struct {
	Log       LogConfig
	Datastore DatastoreConfig
	Cache     CacheConfig
	Feed      FeedConfig
	Trace     TraceConfig
}

func (cfg *Config) Verify() error {
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("config 'log.format' must be one of ['text', 'json']")
	}

	if !slices.Contains([]string{"none", "debug", "info", "warn", "error", "panic", "fatal"}, cfg.Log.Level) {
		return fmt.Errorf(
			"config 'log.level' must be one of ['none', 'debug', 'info', 'warn', 'error', 'panic', 'fatal']",
		)
	}

	if !slices.Contains(engines, cfg.Datastore.Engine) {
		return fmt.Errorf("config 'datastore.engine' must be one of %v", engines)
	}

	if cfg.Datastore.Engine == "firestore" && cfg.Datastore.ProjectID == "" {
		return errors.New("config 'datastore.projectId' must be set for the 'firestore' engine")
	}

	if cfg.Datastore.Engine != "memory" && cfg.Datastore.Engine != "firestore" && cfg.Datastore.URI == "" {
		return fmt.Errorf("config 'datastore.uri' must be set for the '%s' engine", cfg.Datastore.Engine)
	}

	if cfg.Datastore.MaxInValues <= 0 {
		return errors.New("config 'datastore.maxInValues' must be greater than zero")
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.MaxSize <= 0 {
			return errors.New("config 'cache.maxSize' must be greater than zero when the cache is enabled")
		}
		if cfg.Cache.TTL <= 0 {
			return errors.New("config 'cache.ttl' must be greater than zero when the cache is enabled")
		}
	}

	for name, limit := range map[string]int{
		"feed.followingLimit":    cfg.Feed.FollowingLimit,
		"feed.pageSize":          cfg.Feed.PageSize,
		"feed.popularLimit":      cfg.Feed.PopularLimit,
		"feed.socialGraphLimit":  cfg.Feed.SocialGraphLimit,
		"feed.notificationLimit": cfg.Feed.NotificationLimit,
	} {
		if limit <= 0 {
			return fmt.Errorf("config '%s' must be greater than zero", name)
		}
	}

	if cfg.Trace.Enabled && (cfg.Trace.SampleRatio < 0 || cfg.Trace.SampleRatio > 1) {
		return errors.New("config 'trace.sampleRatio' must be between 0 and 1")
	}

	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Datastore: DatastoreConfig{
			Engine:             "memory",
			MaxInValues:        DefaultMaxInValues,
			MaxConcurrentReads: DefaultMaxConcurrentReads,
			MaxIdleConns:       10,
			MaxOpenConns:       30,
		},
		Cache: CacheConfig{
			Enabled: false,
			MaxSize: DefaultCacheMaxSize,
			TTL:     DefaultCacheTTL,
		},
		Feed: FeedConfig{
			FollowingLimit:    DefaultFollowingLimit,
			PageSize:          DefaultFeedPageSize,
			PopularLimit:      DefaultPopularLimit,
			SocialGraphLimit:  DefaultSocialGraphLimit,
			NotificationLimit: DefaultNotificationLimit,
		},
		Trace: TraceConfig{
			Enabled:      false,
			OTLPEndpoint: "0.0.0.0:4317",
			SampleRatio:  0.2,
			ServiceName:  "tavsiyece",
		},
	}
}

// MustDefaultConfig returns a default config that is known to pass Verify.
func MustDefaultConfig() *Config {
	config := DefaultConfig()

	if err := config.Verify(); err != nil {
		panic(err)
	}

	return config
}
