package sqlcommon

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tcgun/tavsiyece-sub000/internal/build"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/telemetry"
)

var tracer = otel.Tracer("tavsiyece/pkg/storage/sqlcommon")

// DocumentTable is the table every document lives in, keyed by
// (collection, doc_id). See assets/migrations.
const DocumentTable = "document"

// Config defines the configuration parameters
// for setting up and managing a sql connection.
type Config struct {
	Username        string
	Password        string
	Logger          logger.Logger
	MaxInValues     int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	// SetMaxElapsedTime bounds the retries of a document write that lost a race.
	SetMaxElapsedTime time.Duration

	ExportMetrics bool
}

// DatastoreOption defines a function type
// used for configuring a Config object.
type DatastoreOption func(*Config)

// WithUsername returns a DatastoreOption that sets the username in the Config.
func WithUsername(username string) DatastoreOption {
	return func(cfg *Config) {
		cfg.Username = username
	}
}

// WithPassword returns a DatastoreOption that sets the password in the Config.
func WithPassword(password string) DatastoreOption {
	return func(cfg *Config) {
		cfg.Password = password
	}
}

// WithLogger returns a DatastoreOption that sets the Logger in the Config.
func WithLogger(l logger.Logger) DatastoreOption {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// WithMaxInValues returns a DatastoreOption that sets the
// fan-in limit of membership filters.
func WithMaxInValues(n int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxInValues = n
	}
}

// WithMaxOpenConns returns a DatastoreOption that sets the
// maximum number of open connections in the Config.
func WithMaxOpenConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxOpenConns = c
	}
}

// WithMaxIdleConns returns a DatastoreOption that sets the
// maximum number of idle connections in the Config.
func WithMaxIdleConns(c int) DatastoreOption {
	return func(cfg *Config) {
		cfg.MaxIdleConns = c
	}
}

// WithConnMaxIdleTime returns a DatastoreOption that sets
// the maximum idle time for a connection in the Config.
func WithConnMaxIdleTime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxIdleTime = d
	}
}

// WithConnMaxLifetime returns a DatastoreOption that sets
// the maximum lifetime for a connection in the Config.
func WithConnMaxLifetime(d time.Duration) DatastoreOption {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

// WithMetrics returns a DatastoreOption that
// enables the export of metrics in the Config.
func WithMetrics() DatastoreOption {
	return func(cfg *Config) {
		cfg.ExportMetrics = true
	}
}

// NewConfig creates a new Config instance with default values
// and applies any provided DatastoreOption modifications.
func NewConfig(opts ...DatastoreOption) *Config {
	cfg := &Config{}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}

	if cfg.MaxInValues == 0 {
		cfg.MaxInValues = storage.DefaultMaxInValues
	}

	if cfg.SetMaxElapsedTime == 0 {
		cfg.SetMaxElapsedTime = 2 * time.Second
	}

	return cfg
}

// Dialect captures what differs between the SQL engines storing documents.
type Dialect interface {
	// Name of the engine, used in spans and metrics.
	Name() string

	PlaceholderFormat() sq.PlaceholderFormat

	// FieldExpr returns an expression yielding the stored JSON of a field, or
	// NULL when the document does not carry it.
	FieldExpr(field string) string

	// TextExpr returns an expression yielding the value under tag of a field as text.
	TextExpr(field, tag string) string

	// NumberExpr returns an expression yielding the value under tag of a field as a number.
	NumberExpr(field, tag string) string

	// LockSuffix is appended to the read of a read-modify-write transaction.
	LockSuffix() string

	// TranslateError maps an engine specific error to a storage error. It
	// returns nil if the error is not recognized.
	TranslateError(err error) error
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateFieldName rejects field names that cannot be embedded in a JSON path.
func ValidateFieldName(field string) error {
	if !fieldNamePattern.MatchString(field) {
		return storage.InvalidQueryError(fmt.Sprintf("unsupported field name '%s'", field))
	}
	return nil
}

// HandleSQLError processes an SQL error and converts it into a storage error.
func HandleSQLError(d Dialect, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return storage.ErrNotFound
	case errors.Is(err, context.Canceled):
		return storage.ErrCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}

	if d != nil {
		if translated := d.TranslateError(err); translated != nil {
			return translated
		}
	}

	return fmt.Errorf("sql error: %w", err)
}

// Datastore is a [storage.DocumentStore] over a single SQL table holding
// every document as JSON.
type Datastore struct {
	stbl              sq.StatementBuilderType
	db                *sql.DB
	dialect           Dialect
	logger            logger.Logger
	dbStatsCollector  prometheus.Collector
	maxInValues       int
	setMaxElapsedTime time.Duration
}

// Ensures that Datastore implements the DocumentStore interface.
var _ storage.DocumentStore = (*Datastore)(nil)

// NewDatastore wraps an open connection. Pool settings and metrics of cfg are
// applied to db.
func NewDatastore(db *sql.DB, d Dialect, cfg *Config) (*Datastore, error) {
	if cfg.MaxOpenConns != 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns != 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime != 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime != 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, build.ProjectName)
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	return &Datastore{
		stbl:              sq.StatementBuilder.PlaceholderFormat(d.PlaceholderFormat()).RunWith(db),
		db:                db,
		dialect:           d,
		logger:            cfg.Logger,
		dbStatsCollector:  collector,
		maxInValues:       cfg.MaxInValues,
		setMaxElapsedTime: cfg.SetMaxElapsedTime,
	}, nil
}

// WaitForDB pings db until it answers or maxElapsed passes.
func WaitForDB(ctx context.Context, db *sql.DB, maxElapsed time.Duration, l logger.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxElapsed
	attempt := 1
	err := backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil {
			l.Info("waiting for database", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

func (s *Datastore) startTrace(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, s.dialect.Name()+"."+name, trace.WithAttributes(attribute.String("db.system", s.dialect.Name())))
}

// Close see [storage.DocumentStore].Close.
func (s *Datastore) Close() {
	if s.dbStatsCollector != nil {
		prometheus.Unregister(s.dbStatsCollector)
	}
	s.db.Close()
}

// MaxInValues see [storage.DocumentStore].MaxInValues.
func (s *Datastore) MaxInValues() int {
	return s.maxInValues
}

// Get see [storage.DocumentReader].Get.
func (s *Datastore) Get(ctx context.Context, path string) (*storage.Document, error) {
	ctx, span := s.startTrace(ctx, "Get")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	collection, id := storage.Split(path)

	var data []byte
	err := s.stbl.
		Select("data").
		From(DocumentTable).
		Where(sq.Eq{"collection": collection, "doc_id": id}).
		QueryRowContext(ctx).
		Scan(&data)
	if err != nil {
		err = HandleSQLError(s.dialect, err)
		telemetry.TraceError(span, err)
		return nil, err
	}

	fields, err := UnmarshalFields(data)
	if err != nil {
		return nil, err
	}

	return &storage.Document{ID: id, Path: path, Fields: fields}, nil
}

// BuildQuery translates q into a select of (doc_id, data). q must be valid.
func BuildQuery(stbl sq.StatementBuilderType, d Dialect, q storage.Query) (sq.SelectBuilder, error) {
	sb := stbl.
		Select("doc_id", "data").
		From(DocumentTable).
		Where(sq.Eq{"collection": q.Collection})

	if q.Filter != nil {
		column := "doc_id"
		if q.Filter.Field != storage.DocumentIDField {
			if err := ValidateFieldName(q.Filter.Field); err != nil {
				return sb, err
			}
			column = d.TextExpr(q.Filter.Field, tagString)
		}
		sb = sb.Where(sq.Eq{column: q.Filter.Values})
	}

	direction := " ASC"
	if q.Descending {
		direction = " DESC"
	}

	if q.OrderBy != "" {
		if err := ValidateFieldName(q.OrderBy); err != nil {
			return sb, err
		}
		numeric := fmt.Sprintf("COALESCE(%s, %s, %s)",
			d.NumberExpr(q.OrderBy, tagTime),
			d.NumberExpr(q.OrderBy, tagInt),
			d.NumberExpr(q.OrderBy, tagFloat),
		)
		sb = sb.
			Where(d.FieldExpr(q.OrderBy) + " IS NOT NULL").
			OrderBy(numeric+direction, d.TextExpr(q.OrderBy, tagString)+direction)
	}
	sb = sb.OrderBy("doc_id" + direction)

	if q.Limit > 0 {
		sb = sb.Limit(uint64(q.Limit))
	}

	return sb, nil
}

// Query see [storage.DocumentReader].Query.
func (s *Datastore) Query(ctx context.Context, q storage.Query) ([]*storage.Document, error) {
	ctx, span := s.startTrace(ctx, "Query")
	defer span.End()

	if err := storage.ValidateQuery(q, s.maxInValues); err != nil {
		return nil, err
	}

	sb, err := BuildQuery(s.stbl, s.dialect, q)
	if err != nil {
		return nil, err
	}

	rows, err := sb.QueryContext(ctx)
	if err != nil {
		err = HandleSQLError(s.dialect, err)
		telemetry.TraceError(span, err)
		return nil, err
	}
	defer rows.Close()

	var docs []*storage.Document
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, HandleSQLError(s.dialect, err)
		}

		fields, err := UnmarshalFields(data)
		if err != nil {
			return nil, err
		}

		docs = append(docs, &storage.Document{
			ID:     id,
			Path:   storage.Join(q.Collection, id),
			Fields: fields,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, HandleSQLError(s.dialect, err)
	}

	span.SetAttributes(attribute.Int("documents", len(docs)))

	return docs, nil
}

// Set see [storage.DocumentWriter].Set. The document is read, merged and
// written back in one transaction. A write that loses a race with a
// concurrent insert of the same document is retried.
func (s *Datastore) Set(ctx context.Context, path string, fields storage.Fields) error {
	ctx, span := s.startTrace(ctx, "Set")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return err
	}
	update, err := fields.Normalize()
	if err != nil {
		return err
	}

	collection, id := storage.Split(path)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = s.setMaxElapsedTime

	err = backoff.Retry(func() error {
		err := s.set(ctx, collection, id, update)
		if err != nil && !errors.Is(err, storage.ErrTransient) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		telemetry.TraceError(span, err)
		return err
	}

	return nil
}

func (s *Datastore) set(ctx context.Context, collection, id string, update storage.Fields) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return HandleSQLError(s.dialect, err)
	}
	defer func() {
		_ = txn.Rollback()
	}()

	stbl := sq.StatementBuilder.PlaceholderFormat(s.dialect.PlaceholderFormat()).RunWith(txn)

	sb := stbl.
		Select("data").
		From(DocumentTable).
		Where(sq.Eq{"collection": collection, "doc_id": id})
	if suffix := s.dialect.LockSuffix(); suffix != "" {
		sb = sb.Suffix(suffix)
	}

	exists := true
	var data []byte
	err = sb.QueryRowContext(ctx).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return HandleSQLError(s.dialect, err)
	}

	var current storage.Fields
	if exists {
		current, err = UnmarshalFields(data)
		if err != nil {
			return err
		}
	}

	encoded, err := MarshalFields(current.Merge(update))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if exists {
		_, err = stbl.
			Update(DocumentTable).
			Set("data", string(encoded)).
			Set("updated_at", now).
			Where(sq.Eq{"collection": collection, "doc_id": id}).
			ExecContext(ctx)
	} else {
		_, err = stbl.
			Insert(DocumentTable).
			Columns("collection", "doc_id", "data", "updated_at").
			Values(collection, id, string(encoded), now).
			ExecContext(ctx)
	}
	if err != nil {
		return HandleSQLError(s.dialect, err)
	}

	if err := txn.Commit(); err != nil {
		return HandleSQLError(s.dialect, err)
	}

	return nil
}

// Delete see [storage.DocumentWriter].Delete.
func (s *Datastore) Delete(ctx context.Context, path string) error {
	ctx, span := s.startTrace(ctx, "Delete")
	defer span.End()

	if err := storage.ValidateDocumentPath(path); err != nil {
		return err
	}

	collection, id := storage.Split(path)

	_, err := s.stbl.
		Delete(DocumentTable).
		Where(sq.Eq{"collection": collection, "doc_id": id}).
		ExecContext(ctx)
	if err != nil {
		err = HandleSQLError(s.dialect, err)
		telemetry.TraceError(span, err)
		return err
	}

	s.logger.DebugWithContext(ctx, "document deleted", zap.String("path", storage.Join(collection, id)))

	return nil
}
