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

type SocialGraphReaderOption func(*SocialGraphReader)

func WithSocialGraphReaderLogger(l logger.Logger) SocialGraphReaderOption {
	return func(r *SocialGraphReader) {
		r.logger = l
	}
}

// SocialGraphReader resolves follow edges into profile summaries.
type SocialGraphReader struct {
	ds     storage.DocumentReader
	lookup *ChunkedLookup
	logger logger.Logger
}

func NewSocialGraphReader(ds storage.DocumentStore, opts ...SocialGraphReaderOption) *SocialGraphReader {
	r := &SocialGraphReader{
		ds:     ds,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.lookup = NewChunkedLookup(ds, WithChunkedLookupLogger(r.logger))
	return r
}

// Followers returns up to limit users following userID, in the iteration
// order of the followers collection. Edges pointing to users that cannot be
// resolved are dropped. limit must be positive.
func (r *SocialGraphReader) Followers(ctx context.Context, userID string, limit int) ([]social.ProfileSummary, error) {
	ctx, span := tracer.Start(ctx, "socialGraph.Followers", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	profiles, err := r.edges(ctx, social.FollowersPath(userID), limit)
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, serverErrors.HandleError("Could not load followers", err)
	}
	return profiles, nil
}

// Following returns up to limit users followed by userID. See Followers.
func (r *SocialGraphReader) Following(ctx context.Context, userID string, limit int) ([]social.ProfileSummary, error) {
	ctx, span := tracer.Start(ctx, "socialGraph.Following", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	profiles, err := r.edges(ctx, social.FollowingPath(userID), limit)
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, serverErrors.HandleError("Could not load followed users", err)
	}
	return profiles, nil
}

func (r *SocialGraphReader) edges(ctx context.Context, collection string, limit int) ([]social.ProfileSummary, error) {
	if limit <= 0 {
		return nil, serverErrors.ValidationError(storage.InvalidQueryError("limit must be positive"))
	}

	memberships, err := r.ds.Query(ctx, storage.Query{Collection: collection, Limit: limit})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ID)
	}

	resolved, _ := r.Profiles(ctx, ids)

	profiles := make([]social.ProfileSummary, 0, len(ids))
	for _, id := range ids {
		p, ok := resolved[id]
		if !ok {
			r.logger.DebugWithContext(ctx, "dropping unresolved follow edge",
				zap.String("collection", collection),
				zap.String("user_id", id))
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Profiles resolves user ids into profile summaries. Ids missing from the
// returned map could not be resolved; the error is the *PartialFailureError
// of the lookup, if any group failed.
func (r *SocialGraphReader) Profiles(ctx context.Context, ids []string) (map[string]social.ProfileSummary, error) {
	res := r.lookup.ByID(ctx, social.UsersCollection, ids)

	profiles := make(map[string]social.ProfileSummary, len(res.Documents))
	for id, doc := range res.Documents {
		profiles[id] = social.ProfileFromDocument(doc)
	}
	return profiles, res.Err()
}
