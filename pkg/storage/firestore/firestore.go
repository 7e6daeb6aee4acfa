// Package firestore provides a Cloud Firestore backed implementation of
// [storage.DocumentStore]. Paths map one to one onto Firestore document
// and collection paths.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

var tracer = otel.Tracer("tavsiyece/pkg/storage/firestore")

func startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "firestore."+name)
}

// Config of a Firestore datastore.
type Config struct {
	ProjectID   string
	DatabaseID  string
	Logger      logger.Logger
	MaxInValues int
	// ClientOptions are passed to the client, e.g. credentials.
	ClientOptions []option.ClientOption
}

// Datastore is a [storage.DocumentStore] on Cloud Firestore. Setting the
// FIRESTORE_EMULATOR_HOST environment variable targets the emulator.
type Datastore struct {
	client      *firestore.Client
	logger      logger.Logger
	maxInValues int
}

var _ storage.DocumentStore = (*Datastore)(nil)

// New connects to the configured project.
func New(ctx context.Context, cfg Config) (*Datastore, error) {
	databaseID := cfg.DatabaseID
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, databaseID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("initialize firestore client: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *firestore.Client, cfg Config) *Datastore {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNoopLogger()
	}

	maxInValues := cfg.MaxInValues
	if maxInValues == 0 {
		maxInValues = storage.DefaultMaxInValues
	}

	return &Datastore{
		client:      client,
		logger:      l,
		maxInValues: maxInValues,
	}
}

// Close see [storage.DocumentStore].Close.
func (s *Datastore) Close() {
	_ = s.client.Close()
}

// MaxInValues see [storage.DocumentStore].MaxInValues.
func (s *Datastore) MaxInValues() int {
	return s.maxInValues
}

// Get see [storage.DocumentReader].Get.
func (s *Datastore) Get(ctx context.Context, path string) (*storage.Document, error) {
	ctx, span := startTrace(ctx, "Get")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	snap, err := s.client.Doc(path).Get(ctx)
	if err != nil {
		err = handleError(err)
		telemetry.TraceError(span, err)
		return nil, err
	}

	return toDocument(snap)
}

// Query see [storage.DocumentReader].Query.
func (s *Datastore) Query(ctx context.Context, q storage.Query) ([]*storage.Document, error) {
	ctx, span := startTrace(ctx, "Query")
	defer span.End()

	if err := storage.ValidateQuery(q, s.maxInValues); err != nil {
		return nil, err
	}

	coll := s.client.Collection(q.Collection)
	query := coll.Query

	if q.Filter != nil {
		if q.Filter.Field == storage.DocumentIDField {
			refs := make([]*firestore.DocumentRef, 0, len(q.Filter.Values))
			for _, id := range q.Filter.Values {
				refs = append(refs, coll.Doc(id))
			}
			query = query.Where(firestore.DocumentID, "in", refs)
		} else {
			query = query.Where(q.Filter.Field, "in", q.Filter.Values)
		}
	}

	if q.OrderBy != "" {
		direction := firestore.Asc
		if q.Descending {
			direction = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, direction)
	} else if q.Descending {
		query = query.OrderBy(firestore.DocumentID, firestore.Desc)
	}

	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	snaps, err := iter.GetAll()
	if err != nil {
		err = handleError(err)
		telemetry.TraceError(span, err)
		return nil, err
	}

	docs := make([]*storage.Document, 0, len(snaps))
	for _, snap := range snaps {
		doc, err := toDocument(snap)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	span.SetAttributes(attribute.Int("documents", len(docs)))

	return docs, nil
}

// Set see [storage.DocumentWriter].Set.
func (s *Datastore) Set(ctx context.Context, path string, fields storage.Fields) error {
	ctx, span := startTrace(ctx, "Set")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return err
	}
	update, err := fields.Normalize()
	if err != nil {
		return err
	}

	data := make(map[string]any, len(update))
	for k, v := range update {
		if inc, ok := v.(storage.Increment); ok {
			data[k] = firestore.Increment(int64(inc))
			continue
		}
		data[k] = v
	}

	if _, err := s.client.Doc(path).Set(ctx, data, firestore.MergeAll); err != nil {
		err = handleError(err)
		telemetry.TraceError(span, err)
		return err
	}

	return nil
}

// Delete see [storage.DocumentWriter].Delete.
func (s *Datastore) Delete(ctx context.Context, path string) error {
	ctx, span := startTrace(ctx, "Delete")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return err
	}

	if _, err := s.client.Doc(path).Delete(ctx); err != nil {
		err = handleError(err)
		telemetry.TraceError(span, err)
		return err
	}

	return nil
}

func toDocument(snap *firestore.DocumentSnapshot) (*storage.Document, error) {
	fields, err := toFields(snap.Data())
	if err != nil {
		return nil, err
	}

	collection := ""
	if snap.Ref.Parent != nil {
		collection = snap.Ref.Parent.Path
	}

	return &storage.Document{
		ID:     snap.Ref.ID,
		Path:   storage.Join(relativePath(collection), snap.Ref.ID),
		Fields: fields,
	}, nil
}

// toFields converts the values the client decodes into canonical field values.
// Values the domain never writes, like nested maps, are dropped.
func toFields(data map[string]any) (storage.Fields, error) {
	fields := make(storage.Fields, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case nil, map[string]any, *firestore.DocumentRef:
			continue
		case time.Time:
			fields[k] = t.UTC()
		default:
			fields[k] = v
		}
	}
	return fields.Normalize()
}

// relativePath strips the "projects/{p}/databases/{d}/documents/" prefix of a
// fully qualified resource name.
func relativePath(name string) string {
	if _, rest, ok := strings.Cut(name, "/documents/"); ok {
		return rest
	}
	return name
}

// handleError maps a Firestore status into a storage error.
func handleError(err error) error {
	if errors.Is(err, context.Canceled) {
		return storage.ErrCancelled
	}

	switch status.Code(err) {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	case codes.Canceled:
		return storage.ErrCancelled
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}

	return fmt.Errorf("firestore error: %w", err)
}
