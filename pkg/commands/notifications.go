package commands

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tcgun/tavsiyece-sub000/internal/concurrency"
	"github.com/tcgun/tavsiyece-sub000/internal/utils"
	serverErrors "github.com/tcgun/tavsiyece-sub000/pkg/errors"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/social"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

const (
	DefaultNotificationLimit = 50

	markReadConcurrency = 10
)

type NotificationProjectorOption func(*NotificationProjector)

func WithNotificationProjectorLogger(l logger.Logger) NotificationProjectorOption {
	return func(p *NotificationProjector) {
		p.logger = l
	}
}

// NotificationProjector turns the stored notifications of a user into
// display-ready views.
type NotificationProjector struct {
	ds     storage.DocumentStore
	graph  *SocialGraphReader
	logger logger.Logger
}

func NewNotificationProjector(ds storage.DocumentStore, opts ...NotificationProjectorOption) *NotificationProjector {
	p := &NotificationProjector{
		ds:     ds,
		logger: logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.graph = NewSocialGraphReader(ds, WithSocialGraphReaderLogger(p.logger))
	return p
}

// Execute returns the latest limit notifications of userID, newest first.
// Senders are resolved to their current profile; a sender that cannot be
// resolved is shown with the identity captured when the notification was sent.
func (p *NotificationProjector) Execute(ctx context.Context, userID string, limit int) ([]social.NotificationView, error) {
	ctx, span := tracer.Start(ctx, "notificationProjector.Execute", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	if userID == "" {
		return nil, serverErrors.ValidationError(errUserRequired)
	}

	docs, err := p.ds.Query(ctx, storage.Query{
		Collection: social.NotificationsPath(userID),
		OrderBy:    social.FieldCreatedAt,
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		telemetry.TraceError(span, err)
		p.logger.ErrorWithContext(ctx, "failed to read notifications", zap.String("user_id", userID), zap.Error(err))
		return nil, serverErrors.HandleError("Could not load your notifications", err)
	}

	records := make([]social.NotificationRecord, 0, len(docs))
	senderIDs := make([]string, 0, len(docs))
	for _, doc := range docs {
		r := social.NotificationFromDocument(doc)
		records = append(records, r)
		if r.SenderID != "" {
			senderIDs = append(senderIDs, r.SenderID)
		}
	}

	senders, err := p.graph.Profiles(ctx, utils.Uniq(senderIDs))
	if err != nil {
		p.logger.WarnWithContext(ctx, "using sender snapshots", zap.String("user_id", userID), zap.Error(err))
	}

	views := make([]social.NotificationView, 0, len(records))
	for _, r := range records {
		sender, ok := senders[r.SenderID]
		if !ok {
			sender = senderSnapshot(r)
		}
		views = append(views, social.NotificationView{
			ID:        r.ID,
			Kind:      r.Kind,
			Sender:    sender,
			Message:   social.RenderMessage(r.Kind, sender.Name, r.Message),
			Link:      social.TargetLink(r),
			Image:     r.ImageURL,
			IsRead:    r.IsRead,
			CreatedAt: r.CreatedAt,
		})
	}
	return views, nil
}

func senderSnapshot(r social.NotificationRecord) social.ProfileSummary {
	name := r.SenderName
	if name == "" {
		name = social.UnknownName
	}
	avatar := r.SenderAvatar
	if avatar == "" {
		avatar = social.GeneratedAvatar(name)
	}
	return social.ProfileSummary{ID: r.SenderID, Name: name, Avatar: avatar}
}

// MarkRead flags the notifications ids of userID as read. Unknown ids are ignored.
func (p *NotificationProjector) MarkRead(ctx context.Context, userID string, ids []string) error {
	ctx, span := tracer.Start(ctx, "notificationProjector.MarkRead", trace.WithAttributes(
		attribute.String("user_id", userID),
		attribute.Int("notifications", len(ids)),
	))
	defer span.End()

	if userID == "" {
		return serverErrors.ValidationError(errUserRequired)
	}

	ctx = storage.ContextWithConsistency(ctx, storage.ConsistencyStrong)

	pool := concurrency.NewPool(ctx, markReadConcurrency)
	for _, id := range utils.Uniq(ids) {
		path := storage.Join(social.NotificationsPath(userID), id)
		pool.Go(func(ctx context.Context) error {
			doc, err := p.ds.Get(ctx, path)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil
				}
				return err
			}
			if doc.Fields.Bool(social.FieldIsRead) {
				return nil
			}
			return p.ds.Set(ctx, path, storage.Fields{social.FieldIsRead: true})
		})
	}

	if err := pool.Wait(); err != nil {
		telemetry.TraceError(span, err)
		return serverErrors.HandleError("Could not update your notifications", err)
	}
	return nil
}
