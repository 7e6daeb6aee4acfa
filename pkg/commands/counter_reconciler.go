package commands

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tcgun/tavsiyece-sub000/internal/build"
	serverErrors "github.com/tcgun/tavsiyece-sub000/pkg/errors"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

// Reconciliation outcomes.
const (
	outcomeConsistent      = "consistent"
	outcomeRepaired        = "repaired"
	outcomeRepairFailed    = "repair_failed"
	outcomeUserMissing     = "user_missing"
	outcomeCacheUnreadable = "cache_unreadable"
	outcomeRecountFailed   = "recount_failed"
)

var counterReconciliationCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "counter_reconciliation_count",
	Help:      "The total number of counter reconciliations by counter and outcome.",
}, []string{"counter", "outcome"})

var errUserRequired = errors.New("user id is required")

type CounterReconcilerOption func(*CounterReconciler)

func WithCounterReconcilerLogger(l logger.Logger) CounterReconcilerOption {
	return func(r *CounterReconciler) {
		r.logger = l
	}
}

// CounterReconciler recomputes the cached counters of a user from the
// collections they summarize and rewrites them when they drifted. Follow and
// publish actions adjust the counters by deltas; the reconciler corrects
// whatever drift those deltas leave behind.
type CounterReconciler struct {
	ds     storage.DocumentStore
	logger logger.Logger
}

func NewCounterReconciler(ds storage.DocumentStore, opts ...CounterReconcilerOption) *CounterReconciler {
	r := &CounterReconciler{
		ds:     ds,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute reconciles counter of userID and returns its value.
//
// When the recount fails the cached value is returned and nothing is written.
// When the recount succeeds its value is returned, even if the cache could not
// be rewritten.
func (r *CounterReconciler) Execute(ctx context.Context, userID string, counter social.Counter) (social.CounterResult, error) {
	ctx, span := tracer.Start(ctx, "counterReconciler.Execute", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("counter", string(counter)),
	))
	defer span.End()

	if userID == "" {
		return social.CounterResult{}, serverErrors.ValidationError(errUserRequired)
	}
	field := counter.Field()
	if field == "" {
		_, err := social.ParseCounter(string(counter))
		return social.CounterResult{}, serverErrors.ValidationError(err)
	}

	ctx = storage.ContextWithConsistency(ctx, storage.ConsistencyStrong)

	var (
		actual             int64
		cached             int64
		hasCached          bool
		actualErr, userErr error
		g                  errgroup.Group
	)
	g.Go(func() error {
		actual, actualErr = r.count(ctx, userID, counter)
		return nil
	})
	g.Go(func() error {
		var user *storage.Document
		user, userErr = r.ds.Get(ctx, social.UserPath(userID))
		if userErr == nil {
			cached, hasCached = user.Fields.Int(field)
		}
		return nil
	})
	_ = g.Wait()

	log := r.logger.With(zap.String("user_id", userID), zap.String("counter", string(counter)))
	outcome := func(o string) {
		counterReconciliationCounter.WithLabelValues(string(counter), o).Inc()
		span.SetAttributes(attribute.String("outcome", o))
	}

	if actualErr != nil {
		telemetry.TraceError(span, actualErr)
		outcome(outcomeRecountFailed)
		if userErr != nil {
			log.ErrorWithContext(ctx, "counter unavailable", zap.Error(actualErr), zap.NamedError("cache_error", userErr))
			return social.CounterResult{}, serverErrors.HandleError("Could not load the counter", actualErr)
		}
		log.WarnWithContext(ctx, "recount failed, keeping cached counter", zap.Error(actualErr))
		return social.CounterResult{Value: cached, Source: social.SourceCached}, nil
	}

	result := social.CounterResult{Value: actual, Source: social.SourceActual}

	switch {
	case errors.Is(userErr, storage.ErrNotFound):
		outcome(outcomeUserMissing)
		log.DebugWithContext(ctx, "user record missing, not caching counter")
		return result, nil
	case userErr != nil:
		outcome(outcomeCacheUnreadable)
		log.WarnWithContext(ctx, "could not read cached counter", zap.Error(userErr))
		return result, nil
	case hasCached && cached == actual:
		outcome(outcomeConsistent)
		return result, nil
	}

	err := r.ds.Set(ctx, social.UserPath(userID), storage.Fields{field: actual})
	if err != nil {
		outcome(outcomeRepairFailed)
		log.WarnWithContext(ctx, "could not repair cached counter",
			zap.Int64("actual", actual), zap.Int64("cached", cached), zap.Error(err))
		return result, nil
	}

	outcome(outcomeRepaired)
	log.InfoWithContext(ctx, "repaired cached counter", zap.Int64("actual", actual), zap.Int64("cached", cached))
	result.Repaired = true
	return result, nil
}

// count lists the collection counter summarizes and returns its size.
func (r *CounterReconciler) count(ctx context.Context, userID string, counter social.Counter) (int64, error) {
	var q storage.Query
	switch counter {
	case social.CounterFollowers:
		q = storage.Query{Collection: social.FollowersPath(userID)}
	case social.CounterFollowing:
		q = storage.Query{Collection: social.FollowingPath(userID)}
	case social.CounterRecommendations:
		q = storage.Query{
			Collection: social.RecommendationsCollection,
			Filter:     &storage.InFilter{Field: social.FieldUserID, Values: []string{userID}},
		}
	}

	docs, err := r.ds.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}
