package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	serverErrors "github.com/tcgun/tavsiyece-sub000/pkg/errors"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

var (
	errSelfFollow   = errors.New("users cannot follow themselves")
	errInvalidID    = errors.New("ids must be non-empty and must not contain '/'")
	errEmptyComment = errors.New("comment text is required")
	errEmptyTitle   = errors.New("recommendation title is required")
)

type ActionsOption func(*Actions)

func WithActionsLogger(l logger.Logger) ActionsOption {
	return func(a *Actions) {
		a.logger = l
	}
}

// WithActionsClock sets the clock stamping created documents.
func WithActionsClock(now func() time.Time) ActionsOption {
	return func(a *Actions) {
		a.now = now
	}
}

// Actions are the writes of the social graph. Each one touches every location
// a relation is stored at, adjusts the cached counters it affects by a delta,
// and notifies the other party. They are not transactional: a failure midway
// is returned and the counters are corrected later by the CounterReconciler.
// Repeating an action is a no-op.
type Actions struct {
	ds     storage.DocumentStore
	logger logger.Logger
	now    func() time.Time
}

func NewActions(ds storage.DocumentStore, opts ...ActionsOption) *Actions {
	a := &Actions{
		ds:     ds,
		logger: logger.NewNoopLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Actions) exists(ctx context.Context, path string) (bool, error) {
	_, err := a.ds.Get(storage.ContextWithConsistency(ctx, storage.ConsistencyStrong), path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	}
	return false, err
}

func (a *Actions) recommendation(ctx context.Context, recommendationID string) (social.Recommendation, error) {
	doc, err := a.ds.Get(storage.ContextWithConsistency(ctx, storage.ConsistencyStrong), social.RecommendationPath(recommendationID))
	if err != nil {
		return social.Recommendation{}, err
	}
	return social.RecommendationFromDocument(doc), nil
}

// profile returns the identity of userID, or a placeholder when it cannot be read.
func (a *Actions) profile(ctx context.Context, userID string) social.ProfileSummary {
	doc, err := a.ds.Get(ctx, social.UserPath(userID))
	if err != nil {
		return social.PlaceholderProfile(userID)
	}
	return social.ProfileFromDocument(doc)
}

// notify records a notification for recipient. Notifications are advisory and
// a failure to record one is logged only. Users are never notified of their
// own actions.
func (a *Actions) notify(ctx context.Context, recipient string, sender social.ProfileSummary, r social.NotificationRecord) {
	if recipient == "" || recipient == sender.ID {
		return
	}

	r.ID = ulid.Make().String()
	r.SenderID = sender.ID
	r.SenderName = sender.Name
	r.SenderAvatar = sender.Avatar
	r.CreatedAt = a.now()

	if err := a.ds.Set(ctx, storage.Join(social.NotificationsPath(recipient), r.ID), r.Fields()); err != nil {
		a.logger.WarnWithContext(ctx, "could not record notification",
			zap.String("user_id", recipient),
			zap.String("kind", string(r.Kind)),
			zap.Error(err))
	}
}

// Follow makes followerID follow followeeID.
func (a *Actions) Follow(ctx context.Context, followerID, followeeID string) error {
	ctx, span := tracer.Start(ctx, "actions.Follow", trace.WithAttributes(
		attribute.String("user_id", followerID),
		attribute.String("target_id", followeeID),
	))
	defer span.End()

	err := a.follow(ctx, followerID, followeeID)
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not follow the user", err)
	}
	return nil
}

func (a *Actions) follow(ctx context.Context, followerID, followeeID string) error {
	if err := validateIDs(followerID, followeeID); err != nil {
		return err
	}
	if followerID == followeeID {
		return serverErrors.ValidationError(errSelfFollow)
	}

	followingPath := storage.Join(social.FollowingPath(followerID), followeeID)
	exists, err := a.exists(ctx, followingPath)
	if err != nil || exists {
		return err
	}

	if _, err := a.ds.Get(ctx, social.UserPath(followeeID)); err != nil {
		return err
	}

	edge := storage.Fields{social.FieldCreatedAt: a.now()}
	writes := []struct {
		path   string
		fields storage.Fields
	}{
		{followingPath, edge},
		{storage.Join(social.FollowersPath(followeeID), followerID), edge},
		{social.UserPath(followerID), storage.Fields{social.FieldFollowingCount: storage.Increment(1)}},
		{social.UserPath(followeeID), storage.Fields{social.FieldFollowersCount: storage.Increment(1)}},
	}
	for _, w := range writes {
		if err := a.ds.Set(ctx, w.path, w.fields); err != nil {
			return err
		}
	}

	a.notify(ctx, followeeID, a.profile(ctx, followerID), social.NotificationRecord{Kind: social.KindFollow})
	return nil
}

// Unfollow removes the follow edge from followerID to followeeID.
func (a *Actions) Unfollow(ctx context.Context, followerID, followeeID string) error {
	ctx, span := tracer.Start(ctx, "actions.Unfollow", trace.WithAttributes(
		attribute.String("user_id", followerID),
		attribute.String("target_id", followeeID),
	))
	defer span.End()

	err := a.unfollow(ctx, followerID, followeeID)
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not unfollow the user", err)
	}
	return nil
}

func (a *Actions) unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := validateIDs(followerID, followeeID); err != nil {
		return err
	}

	followingPath := storage.Join(social.FollowingPath(followerID), followeeID)
	exists, err := a.exists(ctx, followingPath)
	if err != nil || !exists {
		return err
	}

	if err := a.ds.Delete(ctx, followingPath); err != nil {
		return err
	}
	if err := a.ds.Delete(ctx, storage.Join(social.FollowersPath(followeeID), followerID)); err != nil {
		return err
	}
	if err := a.ds.Set(ctx, social.UserPath(followerID), storage.Fields{social.FieldFollowingCount: storage.Increment(-1)}); err != nil {
		return err
	}
	return a.ds.Set(ctx, social.UserPath(followeeID), storage.Fields{social.FieldFollowersCount: storage.Increment(-1)})
}

// Like records that userID likes the recommendation.
func (a *Actions) Like(ctx context.Context, userID, recommendationID string) error {
	ctx, span := tracer.Start(ctx, "actions.Like", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("recommendation_id", recommendationID),
	))
	defer span.End()

	err := a.like(ctx, userID, recommendationID)
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not like the recommendation", err)
	}
	return nil
}

func (a *Actions) like(ctx context.Context, userID, recommendationID string) error {
	if err := validateIDs(userID, recommendationID); err != nil {
		return err
	}

	likePath := storage.Join(social.LikesPath(recommendationID), userID)
	exists, err := a.exists(ctx, likePath)
	if err != nil || exists {
		return err
	}

	rec, err := a.recommendation(ctx, recommendationID)
	if err != nil {
		return err
	}

	mark := storage.Fields{social.FieldCreatedAt: a.now()}
	if err := a.ds.Set(ctx, likePath, mark); err != nil {
		return err
	}
	if err := a.ds.Set(ctx, storage.Join(social.LikedPath(userID), recommendationID), mark); err != nil {
		return err
	}

	a.notify(ctx, rec.UserID, a.profile(ctx, userID), social.NotificationRecord{
		Kind:             social.KindLike,
		RecommendationID: recommendationID,
		ImageURL:         rec.Image,
	})
	return nil
}

// Unlike removes the like of userID from the recommendation.
func (a *Actions) Unlike(ctx context.Context, userID, recommendationID string) error {
	ctx, span := tracer.Start(ctx, "actions.Unlike", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("recommendation_id", recommendationID),
	))
	defer span.End()

	err := a.unlike(ctx, userID, recommendationID)
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not unlike the recommendation", err)
	}
	return nil
}

func (a *Actions) unlike(ctx context.Context, userID, recommendationID string) error {
	if err := validateIDs(userID, recommendationID); err != nil {
		return err
	}

	if err := a.ds.Delete(ctx, storage.Join(social.LikesPath(recommendationID), userID)); err != nil {
		return err
	}
	return a.ds.Delete(ctx, storage.Join(social.LikedPath(userID), recommendationID))
}

// Save adds the recommendation to the saved list of userID.
func (a *Actions) Save(ctx context.Context, userID, recommendationID string) error {
	ctx, span := tracer.Start(ctx, "actions.Save", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("recommendation_id", recommendationID),
	))
	defer span.End()

	err := a.save(ctx, userID, recommendationID)
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not save the recommendation", err)
	}
	return nil
}

func (a *Actions) save(ctx context.Context, userID, recommendationID string) error {
	if err := validateIDs(userID, recommendationID); err != nil {
		return err
	}

	savedPath := storage.Join(social.SavedPath(userID), recommendationID)
	exists, err := a.exists(ctx, savedPath)
	if err != nil || exists {
		return err
	}

	if _, err := a.recommendation(ctx, recommendationID); err != nil {
		return err
	}
	return a.ds.Set(ctx, savedPath, storage.Fields{social.FieldCreatedAt: a.now()})
}

// Unsave removes the recommendation from the saved list of userID.
func (a *Actions) Unsave(ctx context.Context, userID, recommendationID string) error {
	ctx, span := tracer.Start(ctx, "actions.Unsave", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("recommendation_id", recommendationID),
	))
	defer span.End()

	if err := validateIDs(userID, recommendationID); err != nil {
		return err
	}

	err := a.ds.Delete(ctx, storage.Join(social.SavedPath(userID), recommendationID))
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not remove the recommendation from your saved list", err)
	}
	return nil
}

// Comment adds a comment of userID to the recommendation. A non-empty parentID
// makes it a reply to that comment, and the author of the parent comment is
// notified instead of the author of the recommendation.
func (a *Actions) Comment(ctx context.Context, userID, recommendationID, text, parentID string) (*social.Comment, error) {
	ctx, span := tracer.Start(ctx, "actions.Comment", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("recommendation_id", recommendationID),
	))
	defer span.End()

	c, err := a.comment(ctx, userID, recommendationID, text, parentID)
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, serverErrors.HandleError("Could not post the comment", err)
	}
	return c, nil
}

func (a *Actions) comment(ctx context.Context, userID, recommendationID, text, parentID string) (*social.Comment, error) {
	if err := validateIDs(userID, recommendationID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, serverErrors.ValidationError(errEmptyComment)
	}

	rec, err := a.recommendation(ctx, recommendationID)
	if err != nil {
		return nil, err
	}

	recipient, kind := rec.UserID, social.KindComment
	if parentID != "" {
		parent, err := a.ds.Get(ctx, storage.Join(social.CommentsPath(recommendationID), parentID))
		if err != nil {
			return nil, err
		}
		recipient, kind = parent.Fields.String(social.FieldUserID), social.KindReply
	}

	author := a.profile(ctx, userID)
	c := social.Comment{
		ID:         ulid.Make().String(),
		UserID:     userID,
		UserName:   author.Name,
		UserAvatar: author.Avatar,
		Text:       text,
		ParentID:   parentID,
		CreatedAt:  a.now(),
	}
	if err := a.ds.Set(ctx, storage.Join(social.CommentsPath(recommendationID), c.ID), c.Fields()); err != nil {
		return nil, err
	}

	a.notify(ctx, recipient, author, social.NotificationRecord{
		Kind:             kind,
		RecommendationID: recommendationID,
		Message:          text,
		ImageURL:         rec.Image,
	})
	return &c, nil
}

// DeleteComment deletes a comment. Only its author may delete it.
func (a *Actions) DeleteComment(ctx context.Context, userID, recommendationID, commentID string) error {
	ctx, span := tracer.Start(ctx, "actions.DeleteComment", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("recommendation_id", recommendationID),
	))
	defer span.End()

	err := a.deleteComment(ctx, userID, recommendationID, commentID)
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not delete the comment", err)
	}
	return nil
}

func (a *Actions) deleteComment(ctx context.Context, userID, recommendationID, commentID string) error {
	if err := validateIDs(userID, recommendationID, commentID); err != nil {
		return err
	}

	path := storage.Join(social.CommentsPath(recommendationID), commentID)
	doc, err := a.ds.Get(storage.ContextWithConsistency(ctx, storage.ConsistencyStrong), path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if doc.Fields.String(social.FieldUserID) != userID {
		return serverErrors.Forbidden("Only the author can delete this comment")
	}
	return a.ds.Delete(ctx, path)
}

// Publish stores a new recommendation of userID and returns it as stored.
func (a *Actions) Publish(ctx context.Context, userID string, rec social.Recommendation) (*social.Recommendation, error) {
	ctx, span := tracer.Start(ctx, "actions.Publish", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	if err := validateIDs(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.Title) == "" {
		return nil, serverErrors.ValidationError(errEmptyTitle)
	}

	rec.ID = ulid.Make().String()
	rec.UserID = userID
	rec.CreatedAt = a.now().UTC()

	fields := rec.Fields()
	rec.Keywords = fields.Strings(social.FieldKeywords)

	err := a.ds.Set(ctx, social.RecommendationPath(rec.ID), fields)
	if err == nil {
		err = a.ds.Set(ctx, social.UserPath(userID), storage.Fields{social.FieldRecommendationsCount: storage.Increment(1)})
	}
	if err != nil {
		telemetry.TraceError(span, err)
		return nil, serverErrors.HandleError("Could not publish the recommendation", err)
	}
	return &rec, nil
}

// DeleteRecommendation deletes a recommendation with its likes and comments.
// Only its author may delete it. The liked mirrors of other users are left in
// place.
func (a *Actions) DeleteRecommendation(ctx context.Context, userID, recommendationID string) error {
	ctx, span := tracer.Start(ctx, "actions.DeleteRecommendation", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.String("recommendation_id", recommendationID),
	))
	defer span.End()

	err := a.deleteRecommendation(ctx, userID, recommendationID)
	if err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not delete the recommendation", err)
	}
	return nil
}

func (a *Actions) deleteRecommendation(ctx context.Context, userID, recommendationID string) error {
	if err := validateIDs(userID, recommendationID); err != nil {
		return err
	}

	rec, err := a.recommendation(ctx, recommendationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if rec.UserID != userID {
		return serverErrors.Forbidden("Only the author can delete this recommendation")
	}

	if err := a.ds.Delete(ctx, social.RecommendationPath(recommendationID)); err != nil {
		return err
	}
	if err := a.ds.Set(ctx, social.UserPath(userID), storage.Fields{social.FieldRecommendationsCount: storage.Increment(-1)}); err != nil {
		return err
	}

	for _, collection := range []string{social.LikesPath(recommendationID), social.CommentsPath(recommendationID)} {
		a.clear(ctx, collection)
	}
	return nil
}

// clear deletes the documents of a collection, logging failures.
func (a *Actions) clear(ctx context.Context, collection string) {
	docs, err := a.ds.Query(ctx, storage.Query{Collection: collection})
	if err != nil {
		a.logger.WarnWithContext(ctx, "could not list orphaned documents", zap.String("collection", collection), zap.Error(err))
		return
	}
	for _, doc := range docs {
		if err := a.ds.Delete(ctx, doc.Path); err != nil {
			a.logger.WarnWithContext(ctx, "could not delete orphaned document", zap.String("path", doc.Path), zap.Error(err))
		}
	}
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" || strings.Contains(id, "/") {
			return serverErrors.ValidationError(errInvalidID)
		}
	}
	return nil
}
