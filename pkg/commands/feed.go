package commands

import (
	"context"
	"errors"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	serverErrors "github.com/tcgun/tavsiyece-sub000/pkg/errors"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

const (
	DefaultFollowingLimit = 100
	DefaultFeedPageSize   = 20
	DefaultPopularLimit   = 50
)

var errViewerRequired = errors.New("viewer id is required")

// FeedResponse is an assembled feed. Partial is set when some of the content
// queries failed and the items of their authors are missing.
type FeedResponse struct {
	Items   []social.FeedItem `json:"items"`
	Partial bool              `json:"partial"`
}

type FeedQueryOption func(*FeedQuery)

func WithFeedQueryLogger(l logger.Logger) FeedQueryOption {
	return func(q *FeedQuery) {
		q.logger = l
	}
}

// WithFollowingLimit bounds the number of followed users whose content is read.
func WithFollowingLimit(n int) FeedQueryOption {
	return func(q *FeedQuery) {
		q.followingLimit = n
	}
}

// WithFeedPageSize bounds the number of items read per audience group.
func WithFeedPageSize(n int) FeedQueryOption {
	return func(q *FeedQuery) {
		q.pageSize = n
	}
}

// WithPopularLimit bounds the number of items of the popular feed.
func WithPopularLimit(n int) FeedQueryOption {
	return func(q *FeedQuery) {
		q.popularLimit = n
	}
}

// FeedQuery assembles the feeds of a viewer: the following feed, made of the
// latest recommendations of the users the viewer follows and of the viewer's
// own, and the popular feed, made of the latest recommendations of anyone.
type FeedQuery struct {
	ds             storage.DocumentReader
	lookup         *ChunkedLookup
	hydrator       *feedHydrator
	logger         logger.Logger
	followingLimit int
	pageSize       int
	popularLimit   int
}

func NewFeedQuery(ds storage.DocumentStore, opts ...FeedQueryOption) *FeedQuery {
	q := &FeedQuery{
		ds:             ds,
		logger:         logger.NewNoopLogger(),
		followingLimit: DefaultFollowingLimit,
		pageSize:       DefaultFeedPageSize,
		popularLimit:   DefaultPopularLimit,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.lookup = NewChunkedLookup(ds, WithChunkedLookupLogger(q.logger))
	q.hydrator = newFeedHydrator(ds, q.logger)
	return q
}

// Execute assembles the following feed of viewerID, newest first.
//
// A failure to read the audience, or a failure of every content query, is
// returned. When only some content queries fail, the items that could be read
// are returned with Partial set.
func (q *FeedQuery) Execute(ctx context.Context, viewerID string) (*FeedResponse, error) {
	ctx, span := tracer.Start(ctx, "feedQuery.Execute", trace.WithAttributes(attribute.String("viewer_id", viewerID)))
	defer span.End()

	if viewerID == "" {
		return nil, serverErrors.ValidationError(errViewerRequired)
	}

	audience, err := q.audience(ctx, viewerID)
	if err != nil {
		telemetry.TraceError(span, err)
		q.logger.ErrorWithContext(ctx, "failed to read feed audience", zap.String("user_id", viewerID), zap.Error(err))
		return nil, serverErrors.HandleError("Could not load your feed", err)
	}
	span.SetAttributes(attribute.Int("audience", audience.Size()))

	res := q.lookup.ByField(ctx, storage.Query{
		Collection: social.RecommendationsCollection,
		OrderBy:    social.FieldCreatedAt,
		Descending: true,
		Limit:      q.pageSize,
	}, social.FieldUserID, audience.Values())

	if res.AllFailed() {
		err := res.Err()
		telemetry.TraceError(span, err)
		q.logger.ErrorWithContext(ctx, "failed to read feed content", zap.String("user_id", viewerID), zap.Error(err))
		return nil, serverErrors.HandleError("Could not load your feed", err)
	}

	recs := make([]social.Recommendation, 0, len(res.Order))
	for _, doc := range res.Ordered() {
		recs = append(recs, social.RecommendationFromDocument(doc))
	}

	items := q.hydrator.hydrate(ctx, recs, viewerID)
	sortByRecency(items)

	return &FeedResponse{Items: items, Partial: len(res.Failures) > 0}, nil
}

// Popular assembles the popular feed as seen by viewerID, which may be empty.
func (q *FeedQuery) Popular(ctx context.Context, viewerID string) (*FeedResponse, error) {
	ctx, span := tracer.Start(ctx, "feedQuery.Popular")
	defer span.End()

	docs, err := q.ds.Query(ctx, storage.Query{
		Collection: social.RecommendationsCollection,
		OrderBy:    social.FieldCreatedAt,
		Descending: true,
		Limit:      q.popularLimit,
	})
	if err != nil {
		telemetry.TraceError(span, err)
		q.logger.ErrorWithContext(ctx, "failed to read popular feed", zap.Error(err))
		return nil, serverErrors.HandleError("Could not load the popular feed", err)
	}

	recs := make([]social.Recommendation, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, social.RecommendationFromDocument(doc))
	}

	items := q.hydrator.hydrate(ctx, recs, viewerID)
	sortByRecency(items)

	return &FeedResponse{Items: items}, nil
}

// audience returns the users followed by viewerID, up to the following limit, and viewerID.
func (q *FeedQuery) audience(ctx context.Context, viewerID string) (storage.SortedSet, error) {
	following, err := q.ds.Query(ctx, storage.Query{
		Collection: social.FollowingPath(viewerID),
		Limit:      q.followingLimit,
	})
	if err != nil {
		return nil, err
	}

	audience := storage.NewSortedSet(viewerID)
	for _, doc := range following {
		audience.Add(doc.ID)
	}
	return audience, nil
}

// sortByRecency orders items newest first. Items created at the same instant
// keep their relative order.
func sortByRecency(items []social.FeedItem) {
	slices.SortStableFunc(items, func(a, b social.FeedItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// feedHydrator turns recommendations into feed items: it resolves their
// authors and attaches their engagement. Both are advisory: an author that
// cannot be resolved is replaced by a placeholder and engagement degrades to
// zero counts.
type feedHydrator struct {
	graph      *SocialGraphReader
	engagement *EngagementCounter
	logger     logger.Logger
}

func newFeedHydrator(ds storage.DocumentStore, l logger.Logger) *feedHydrator {
	return &feedHydrator{
		graph:      NewSocialGraphReader(ds, WithSocialGraphReaderLogger(l)),
		engagement: NewEngagementCounter(ds, WithEngagementCounterLogger(l)),
		logger:     l,
	}
}

// hydrate returns the feed items of recs in the same order.
func (h *feedHydrator) hydrate(ctx context.Context, recs []social.Recommendation, viewerID string) []social.FeedItem {
	if len(recs) == 0 {
		return []social.FeedItem{}
	}

	authorIDs := make([]string, 0, len(recs))
	recIDs := make([]string, 0, len(recs))
	for _, r := range recs {
		authorIDs = append(authorIDs, r.UserID)
		recIDs = append(recIDs, r.ID)
	}

	authors, err := h.graph.Profiles(ctx, authorIDs)
	if err != nil {
		h.logger.WarnWithContext(ctx, "using placeholder authors", zap.Error(err))
	}
	engagement := h.engagement.Execute(ctx, recIDs, viewerID)

	items := make([]social.FeedItem, 0, len(recs))
	for _, r := range recs {
		author, ok := authors[r.UserID]
		if !ok {
			author = social.PlaceholderProfile(r.UserID)
		}
		items = append(items, social.FeedItem{
			ID:         r.ID,
			Title:      r.Title,
			Text:       r.Text,
			Category:   r.Category,
			Image:      r.Image,
			Author:     author,
			Engagement: engagement[r.ID],
			CreatedAt:  r.CreatedAt,
		})
	}
	return items
}
