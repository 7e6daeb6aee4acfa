package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := MustDefaultConfig()

	require.Equal(t, "memory", cfg.Datastore.Engine)
	require.Equal(t, DefaultMaxInValues, cfg.Datastore.MaxInValues)
	require.Equal(t, DefaultFollowingLimit, cfg.Feed.FollowingLimit)
	require.Equal(t, DefaultFeedPageSize, cfg.Feed.PageSize)
}

func TestVerifyConfig(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Config)
		err    string
	}{
		`invalid_log_format`: {
			mutate: func(c *Config) { c.Log.Format = "xml" },
			err:    "config 'log.format' must be one of ['text', 'json']",
		},
		`invalid_log_level`: {
			mutate: func(c *Config) { c.Log.Level = "verbose" },
			err:    "config 'log.level' must be one of ['none', 'debug', 'info', 'warn', 'error', 'panic', 'fatal']",
		},
		`unknown_engine`: {
			mutate: func(c *Config) { c.Datastore.Engine = "redis" },
			err:    "config 'datastore.engine' must be one of [memory sqlite postgres mysql firestore]",
		},
		`sql_engine_without_uri`: {
			mutate: func(c *Config) { c.Datastore.Engine = "postgres" },
			err:    "config 'datastore.uri' must be set for the 'postgres' engine",
		},
		`firestore_without_project`: {
			mutate: func(c *Config) { c.Datastore.Engine = "firestore" },
			err:    "config 'datastore.projectId' must be set for the 'firestore' engine",
		},
		`zero_fan_in`: {
			mutate: func(c *Config) { c.Datastore.MaxInValues = 0 },
			err:    "config 'datastore.maxInValues' must be greater than zero",
		},
		`cache_without_ttl`: {
			mutate: func(c *Config) {
				c.Cache.Enabled = true
				c.Cache.TTL = 0
			},
			err: "config 'cache.ttl' must be greater than zero when the cache is enabled",
		},
		`zero_page_size`: {
			mutate: func(c *Config) { c.Feed.PageSize = 0 },
			err:    "config 'feed.pageSize' must be greater than zero",
		},
		`sample_ratio_out_of_range`: {
			mutate: func(c *Config) {
				c.Trace.Enabled = true
				c.Trace.SampleRatio = 2
			},
			err: "config 'trace.sampleRatio' must be between 0 and 1",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.mutate(cfg)
			require.EqualError(t, cfg.Verify(), test.err)
		})
	}

	t.Run("sqlite_with_uri", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Datastore.Engine = "sqlite"
		cfg.Datastore.URI = "file:tavsiyece.db"
		require.NoError(t, cfg.Verify())
	})
}
