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
	"github.com/tcgun/tavsiyece-sub000/internal/concurrency"
	"github.com/tcgun/tavsiyece-sub000/internal/utils"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

var engagementDegradedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: build.ProjectName,
	Name:      "engagement_degraded_count",
	Help:      "The total number of engagement lookups that could not be computed and were degraded.",
}, []string{"part"})

type EngagementCounterOption func(*EngagementCounter)

func WithEngagementCounterLogger(l logger.Logger) EngagementCounterOption {
	return func(c *EngagementCounter) {
		c.logger = l
	}
}

// EngagementCounter computes the likes, comments and viewer flags of
// recommendations. Counts are taken by listing the likes and comments of every
// item, two full reads per item, which only scales while those collections
// stay small.
type EngagementCounter struct {
	ds     storage.DocumentReader
	logger logger.Logger
}

func NewEngagementCounter(ds storage.DocumentReader, opts ...EngagementCounterOption) *EngagementCounter {
	c := &EngagementCounter{
		ds:     ds,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute returns the engagement of every recommendation in ids as seen by
// viewerID, which may be empty for an anonymous viewer. It never fails: an
// item whose counts cannot be read gets zero counts and is marked Degraded.
func (c *EngagementCounter) Execute(ctx context.Context, ids []string, viewerID string) map[string]social.Engagement {
	ids = utils.Uniq(ids)

	ctx, span := tracer.Start(ctx, "engagementCounter", trace.WithAttributes(attribute.Int("items", len(ids))))
	defer span.End()

	results := concurrency.FanOut(ctx, ids, func(ctx context.Context, id string) (social.Engagement, error) {
		return c.item(ctx, id, viewerID), nil
	})

	out := make(map[string]social.Engagement, len(ids))
	for i, r := range results {
		out[ids[i]] = r.Value
	}
	return out
}

func (c *EngagementCounter) item(ctx context.Context, id, viewerID string) social.Engagement {
	var (
		likes, comments []*storage.Document
		saved           bool
		g               errgroup.Group
	)

	g.Go(func() error {
		var err error
		likes, err = c.ds.Query(ctx, storage.Query{Collection: social.LikesPath(id)})
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = c.ds.Query(ctx, storage.Query{Collection: social.CommentsPath(id)})
		return err
	})
	if viewerID != "" {
		g.Go(func() error {
			saved = c.isSaved(ctx, id, viewerID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		engagementDegradedCounter.WithLabelValues("counts").Inc()
		c.logger.WarnWithContext(ctx, "degrading engagement counts",
			zap.String("recommendation_id", id),
			zap.String("user_id", viewerID),
			zap.Error(err))
		return social.Engagement{IsSaved: saved, Degraded: true}
	}

	e := social.Engagement{
		LikeCount:    len(likes),
		CommentCount: len(comments),
		IsSaved:      saved,
	}
	if viewerID != "" {
		for _, like := range likes {
			if like.ID == viewerID {
				e.IsLiked = true
				break
			}
		}
	}
	return e
}

func (c *EngagementCounter) isSaved(ctx context.Context, id, viewerID string) bool {
	_, err := c.ds.Get(ctx, storage.Join(social.SavedPath(viewerID), id))
	switch {
	case err == nil:
		return true
	case errors.Is(err, storage.ErrNotFound):
		return false
	}

	engagementDegradedCounter.WithLabelValues("saved").Inc()
	c.logger.WarnWithContext(ctx, "could not read saved mark",
		zap.String("recommendation_id", id),
		zap.String("user_id", viewerID),
		zap.Error(err))
	return false
}
