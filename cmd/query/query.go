// Package query contains the commands that run the read paths of the app and
// the counter reconciliation against a configured datastore.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tcgun/tavsiyece-sub000/internal/config"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/storagewrappers"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

// NewQueryCommand returns the query command and its subcommands.
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run the feed, social graph, notification and counter reads",
		Long: `Run the read paths of the app against the configured datastore and print the result as JSON.

The datastore, cache, limits and tracing are configured through flags, TAVSIYECE_ prefixed
environment variables or config.yaml.`,
		Args: cobra.NoArgs,
	}

	addConfigFlags(cmd)

	cmd.AddCommand(
		newFeedCommand(),
		newPopularCommand(),
		newSavedCommand(),
		newFollowersCommand(),
		newFollowingCommand(),
		newReconcileCommand(),
		newNotificationsCommand(),
		newMarkReadCommand(),
	)

	return cmd
}

// ReadConfig returns the default config overlaid with config.yaml, the
// environment and the bound flags.
func ReadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// queryContext holds what a subcommand needs to run one read.
type queryContext struct {
	cfg    *config.Config
	logger logger.Logger
	ds     storage.DocumentStore
	closer func()
}

func newQueryContext(ctx context.Context) (*queryContext, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	shutdownTracer := func() {}
	if cfg.Trace.Enabled {
		log.Info(fmt.Sprintf("🕵 tracing enabled: sampling ratio is %v and sending traces to '%s'", cfg.Trace.SampleRatio, cfg.Trace.OTLPEndpoint))
		tp, err := telemetry.NewTracerProvider(ctx,
			telemetry.WithOTLPEndpoint(cfg.Trace.OTLPEndpoint),
			telemetry.WithServiceName(cfg.Trace.ServiceName),
			telemetry.WithSamplingRatio(cfg.Trace.SampleRatio),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		shutdownTracer = func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shut down the tracer provider", zap.Error(err))
			}
		}
	}

	ds, err := OpenDatastore(ctx, cfg, log)
	if err != nil {
		shutdownTracer()
		return nil, err
	}

	return &queryContext{
		cfg:    cfg,
		logger: log,
		ds:     ds,
		closer: func() {
			ds.Close()
			shutdownTracer()
		},
	}, nil
}

func (q *queryContext) Close() {
	q.closer()
}

// runQuery opens the datastore, runs fn and prints its result as indented JSON.
func runQuery(cmd *cobra.Command, fn func(ctx context.Context, q *queryContext) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	q, err := newQueryContext(ctx)
	if err != nil {
		return err
	}
	defer q.Close()

	result, err := q.run(ctx, cmd.Name(), fn)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), result)
}

// run runs fn against an instrumented view of the datastore and logs the
// number of datastore operations it issued.
func (q *queryContext) run(ctx context.Context, name string, fn func(ctx context.Context, q *queryContext) (any, error)) (any, error) {
	ds := storagewrappers.NewInstrumentedStore(q.ds)
	scoped := *q
	scoped.ds = ds

	result, err := fn(ctx, &scoped)

	m := ds.GetMetrics()
	q.logger.InfoWithContext(ctx, "query finished",
		zap.String("query", name),
		zap.Uint32("datastore_read_count", m.DatastoreReadCount),
		zap.Uint32("datastore_write_count", m.DatastoreWriteCount),
		zap.Bool("failed", err != nil),
	)

	return result, err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
