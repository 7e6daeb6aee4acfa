package commands

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	serverErrors "github.com/tcgun/tavsiyece-sub000/pkg/errors"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

type SavedQueryOption func(*SavedQuery)

func WithSavedQueryLogger(l logger.Logger) SavedQueryOption {
	return func(q *SavedQuery) {
		q.logger = l
	}
}

// SavedQuery lists the recommendations a user saved, most recently saved first.
type SavedQuery struct {
	ds       storage.DocumentReader
	lookup   *ChunkedLookup
	hydrator *feedHydrator
	logger   logger.Logger
}

func NewSavedQuery(ds storage.DocumentStore, opts ...SavedQueryOption) *SavedQuery {
	q := &SavedQuery{
		ds:     ds,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.lookup = NewChunkedLookup(ds, WithChunkedLookupLogger(q.logger))
	q.hydrator = newFeedHydrator(ds, q.logger)
	return q
}

// Execute returns up to limit recommendations saved by userID. Saved marks of
// deleted recommendations are skipped.
func (q *SavedQuery) Execute(ctx context.Context, userID string, limit int) (*FeedResponse, error) {
	ctx, span := tracer.Start(ctx, "savedQuery.Execute", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	if userID == "" {
		return nil, serverErrors.ValidationError(errViewerRequired)
	}

	marks, err := q.ds.Query(ctx, storage.Query{
		Collection: social.SavedPath(userID),
		OrderBy:    social.FieldCreatedAt,
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		telemetry.TraceError(span, err)
		q.logger.ErrorWithContext(ctx, "failed to read saved marks", zap.String("user_id", userID), zap.Error(err))
		return nil, serverErrors.HandleError("Could not load your saved recommendations", err)
	}

	ids := make([]string, 0, len(marks))
	for _, m := range marks {
		ids = append(ids, m.ID)
	}

	res := q.lookup.ByID(ctx, social.RecommendationsCollection, ids)
	if res.AllFailed() {
		err := res.Err()
		telemetry.TraceError(span, err)
		return nil, serverErrors.HandleError("Could not load your saved recommendations", err)
	}

	recs := make([]social.Recommendation, 0, len(ids))
	for _, id := range ids {
		doc, ok := res.Documents[id]
		if !ok {
			continue
		}
		recs = append(recs, social.RecommendationFromDocument(doc))
	}

	return &FeedResponse{
		Items:   q.hydrator.hydrate(ctx, recs, userID),
		Partial: len(res.Failures) > 0,
	}, nil
}
