package query

import (
	"github.com/spf13/cobra"

	"github.com/tcgun/tavsiyece-sub000/cmd/util"
	"github.com/tcgun/tavsiyece-sub000/internal/config"
)

// addConfigFlags declares the persistent config flags shared by every query
// subcommand. Their defaults come from [config.DefaultConfig].
func addConfigFlags(command *cobra.Command) {
	defaultConfig := config.DefaultConfig()
	flags := command.PersistentFlags()

	flags.String("log-format", defaultConfig.Log.Format, "the log format to output logs in ('text' or 'json')")
	flags.String("log-level", defaultConfig.Log.Level, "the log level to use ('none', 'debug', 'info', 'warn', 'error', 'panic', 'fatal')")

	flags.String("datastore-engine", defaultConfig.Datastore.Engine, "the datastore engine to read from ('memory', 'sqlite', 'postgres', 'mysql', 'firestore')")
	flags.String("datastore-uri", defaultConfig.Datastore.URI, "the connection uri to use to connect to the datastore (for any engine other than 'memory' and 'firestore')")
	flags.String("datastore-username", "", "the connection username to use to connect to the datastore (overwrites any username provided in the connection uri)")
	flags.String("datastore-password", "", "the connection password to use to connect to the datastore (overwrites any password provided in the connection uri)")
	flags.String("datastore-project-id", defaultConfig.Datastore.ProjectID, "the Google Cloud project of the 'firestore' engine")
	flags.String("datastore-database-id", defaultConfig.Datastore.DatabaseID, "the Firestore database of the 'firestore' engine")
	flags.Int("datastore-max-in-values", defaultConfig.Datastore.MaxInValues, "the maximum number of values of a single membership query")
	flags.Uint32("datastore-max-concurrent-reads", defaultConfig.Datastore.MaxConcurrentReads, "the maximum number of reads in flight against the datastore (0 disables the bound)")
	flags.Int("datastore-max-open-conns", defaultConfig.Datastore.MaxOpenConns, "the maximum number of open connections to the datastore")
	flags.Int("datastore-max-idle-conns", defaultConfig.Datastore.MaxIdleConns, "the maximum number of connections to the datastore in the idle connection pool")
	flags.Duration("datastore-conn-max-idle-time", defaultConfig.Datastore.ConnMaxIdleTime, "the maximum amount of time a connection to the datastore may be idle")
	flags.Duration("datastore-conn-max-lifetime", defaultConfig.Datastore.ConnMaxLifetime, "the maximum amount of time a connection to the datastore may be reused")
	flags.Bool("datastore-metrics-enabled", defaultConfig.Datastore.Metrics, "enable/disable sql metrics")

	flags.Bool("cache-enabled", defaultConfig.Cache.Enabled, "enable/disable the read cache in front of the datastore")
	flags.Int64("cache-max-size", defaultConfig.Cache.MaxSize, "the maximum number of cached reads")
	flags.Duration("cache-ttl", defaultConfig.Cache.TTL, "how long a cached read is served")

	flags.Int("feed-following-limit", defaultConfig.Feed.FollowingLimit, "the maximum number of followed users whose recommendations make up the home feed")
	flags.Int("feed-page-size", defaultConfig.Feed.PageSize, "the maximum number of recommendations read per group of authors")
	flags.Int("feed-popular-limit", defaultConfig.Feed.PopularLimit, "the number of recommendations of the popular feed")
	flags.Int("feed-social-graph-limit", defaultConfig.Feed.SocialGraphLimit, "the default number of users listed by followers and following")
	flags.Int("feed-notification-limit", defaultConfig.Feed.NotificationLimit, "the default number of notifications listed")

	flags.Bool("trace-enabled", defaultConfig.Trace.Enabled, "enable tracing")
	flags.String("trace-otlp-endpoint", defaultConfig.Trace.OTLPEndpoint, "the endpoint of the trace collector")
	flags.Float64("trace-sample-ratio", defaultConfig.Trace.SampleRatio, "the fraction of traces to sample. 1 means all, 0 means none")
	flags.String("trace-service-name", defaultConfig.Trace.ServiceName, "the service name included in sampled traces")
}

// bindConfigFlags binds the cobra cmd flags to the equivalent config value being managed
// by viper. This bridges the config between cobra flags and viper flags.
func bindConfigFlags(command *cobra.Command, _ []string) {
	flags := command.Flags()

	util.MustBindPFlag("log.format", flags.Lookup("log-format"))
	util.MustBindEnv("log.format", "TAVSIYECE_LOG_FORMAT")
	util.MustBindPFlag("log.level", flags.Lookup("log-level"))
	util.MustBindEnv("log.level", "TAVSIYECE_LOG_LEVEL")

	util.MustBindPFlag("datastore.engine", flags.Lookup("datastore-engine"))
	util.MustBindEnv("datastore.engine", "TAVSIYECE_DATASTORE_ENGINE")
	util.MustBindPFlag("datastore.uri", flags.Lookup("datastore-uri"))
	util.MustBindEnv("datastore.uri", "TAVSIYECE_DATASTORE_URI")
	util.MustBindPFlag("datastore.username", flags.Lookup("datastore-username"))
	util.MustBindEnv("datastore.username", "TAVSIYECE_DATASTORE_USERNAME")
	util.MustBindPFlag("datastore.password", flags.Lookup("datastore-password"))
	util.MustBindEnv("datastore.password", "TAVSIYECE_DATASTORE_PASSWORD")
	util.MustBindPFlag("datastore.projectId", flags.Lookup("datastore-project-id"))
	util.MustBindEnv("datastore.projectId", "TAVSIYECE_DATASTORE_PROJECT_ID")
	util.MustBindPFlag("datastore.databaseId", flags.Lookup("datastore-database-id"))
	util.MustBindEnv("datastore.databaseId", "TAVSIYECE_DATASTORE_DATABASE_ID")
	util.MustBindPFlag("datastore.maxInValues", flags.Lookup("datastore-max-in-values"))
	util.MustBindEnv("datastore.maxInValues", "TAVSIYECE_DATASTORE_MAX_IN_VALUES")
	util.MustBindPFlag("datastore.maxConcurrentReads", flags.Lookup("datastore-max-concurrent-reads"))
	util.MustBindEnv("datastore.maxConcurrentReads", "TAVSIYECE_DATASTORE_MAX_CONCURRENT_READS")
	util.MustBindPFlag("datastore.maxOpenConns", flags.Lookup("datastore-max-open-conns"))
	util.MustBindEnv("datastore.maxOpenConns", "TAVSIYECE_DATASTORE_MAX_OPEN_CONNS")
	util.MustBindPFlag("datastore.maxIdleConns", flags.Lookup("datastore-max-idle-conns"))
	util.MustBindEnv("datastore.maxIdleConns", "TAVSIYECE_DATASTORE_MAX_IDLE_CONNS")
	util.MustBindPFlag("datastore.connMaxIdleTime", flags.Lookup("datastore-conn-max-idle-time"))
	util.MustBindEnv("datastore.connMaxIdleTime", "TAVSIYECE_DATASTORE_CONN_MAX_IDLE_TIME")
	util.MustBindPFlag("datastore.connMaxLifetime", flags.Lookup("datastore-conn-max-lifetime"))
	util.MustBindEnv("datastore.connMaxLifetime", "TAVSIYECE_DATASTORE_CONN_MAX_LIFETIME")
	util.MustBindPFlag("datastore.metrics", flags.Lookup("datastore-metrics-enabled"))
	util.MustBindEnv("datastore.metrics", "TAVSIYECE_DATASTORE_METRICS_ENABLED")

	util.MustBindPFlag("cache.enabled", flags.Lookup("cache-enabled"))
	util.MustBindEnv("cache.enabled", "TAVSIYECE_CACHE_ENABLED")
	util.MustBindPFlag("cache.maxSize", flags.Lookup("cache-max-size"))
	util.MustBindEnv("cache.maxSize", "TAVSIYECE_CACHE_MAX_SIZE")
	util.MustBindPFlag("cache.ttl", flags.Lookup("cache-ttl"))
	util.MustBindEnv("cache.ttl", "TAVSIYECE_CACHE_TTL")

	util.MustBindPFlag("feed.followingLimit", flags.Lookup("feed-following-limit"))
	util.MustBindEnv("feed.followingLimit", "TAVSIYECE_FEED_FOLLOWING_LIMIT")
	util.MustBindPFlag("feed.pageSize", flags.Lookup("feed-page-size"))
	util.MustBindEnv("feed.pageSize", "TAVSIYECE_FEED_PAGE_SIZE")
	util.MustBindPFlag("feed.popularLimit", flags.Lookup("feed-popular-limit"))
	util.MustBindEnv("feed.popularLimit", "TAVSIYECE_FEED_POPULAR_LIMIT")
	util.MustBindPFlag("feed.socialGraphLimit", flags.Lookup("feed-social-graph-limit"))
	util.MustBindEnv("feed.socialGraphLimit", "TAVSIYECE_FEED_SOCIAL_GRAPH_LIMIT")
	util.MustBindPFlag("feed.notificationLimit", flags.Lookup("feed-notification-limit"))
	util.MustBindEnv("feed.notificationLimit", "TAVSIYECE_FEED_NOTIFICATION_LIMIT")

	util.MustBindPFlag("trace.enabled", flags.Lookup("trace-enabled"))
	util.MustBindEnv("trace.enabled", "TAVSIYECE_TRACE_ENABLED")
	util.MustBindPFlag("trace.otlpEndpoint", flags.Lookup("trace-otlp-endpoint"))
	util.MustBindEnv("trace.otlpEndpoint", "TAVSIYECE_TRACE_OTLP_ENDPOINT")
	util.MustBindPFlag("trace.sampleRatio", flags.Lookup("trace-sample-ratio"))
	util.MustBindEnv("trace.sampleRatio", "TAVSIYECE_TRACE_SAMPLE_RATIO")
	util.MustBindPFlag("trace.serviceName", flags.Lookup("trace-service-name"))
	util.MustBindEnv("trace.serviceName", "TAVSIYECE_TRACE_SERVICE_NAME")
}
