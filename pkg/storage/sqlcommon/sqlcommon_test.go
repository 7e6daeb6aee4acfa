package sqlcommon

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/require"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
)

type fakeDialect struct{}

func (fakeDialect) Name() string                            { return "fake" }
func (fakeDialect) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }
func (fakeDialect) FieldExpr(field string) string           { return "f(" + field + ")" }
func (fakeDialect) TextExpr(field, tag string) string       { return "txt(" + field + "." + tag + ")" }
func (fakeDialect) NumberExpr(field, tag string) string     { return "num(" + field + "." + tag + ")" }
func (fakeDialect) LockSuffix() string                      { return "" }

var errFakeDenied = errors.New("fake: denied")

func (fakeDialect) TranslateError(err error) error {
	if errors.Is(err, errFakeDenied) {
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	}
	return nil
}

func TestFieldsEncoding(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)
	fields := storage.Fields{
		"title":     "Dune",
		"count":     int64(42),
		"score":     1.5,
		"isRead":    false,
		"createdAt": createdAt,
		"keywords":  []string{"sci-fi", "book"},
		"empty":     []string{},
	}

	data, err := MarshalFields(fields)
	require.NoError(t, err)

	decoded, err := UnmarshalFields(data)
	require.NoError(t, err)
	require.Equal(t, fields, decoded)
	require.True(t, decoded.Time("createdAt").Equal(createdAt))
}

func TestMarshalFieldsRejectsUnknownTypes(t *testing.T) {
	_, err := MarshalFields(storage.Fields{"bad": struct{}{}})
	require.ErrorIs(t, err, storage.ErrInvalidFieldValue)
}

func TestHandleSQLError(t *testing.T) {
	d := fakeDialect{}

	t.Run("no_rows", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(d, sql.ErrNoRows), storage.ErrNotFound)
	})

	t.Run("cancelled", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(d, context.Canceled), storage.ErrCancelled)
	})

	t.Run("transient", func(t *testing.T) {
		require.ErrorIs(t, HandleSQLError(d, context.DeadlineExceeded), storage.ErrTransient)
		require.ErrorIs(t, HandleSQLError(d, driver.ErrBadConn), storage.ErrTransient)
	})

	t.Run("dialect_specific", func(t *testing.T) {
		err := HandleSQLError(d, errFakeDenied)
		require.ErrorIs(t, err, storage.ErrPermissionDenied)
		require.ErrorIs(t, err, errFakeDenied)
	})

	t.Run("unknown", func(t *testing.T) {
		err := HandleSQLError(d, errors.New("boom"))
		require.EqualError(t, err, "sql error: boom")
		require.False(t, storage.IsAccessFailure(err))
	})
}

func TestBuildQuery(t *testing.T) {
	stbl := sq.StatementBuilder.PlaceholderFormat(sq.Question)

	t.Run("default_order", func(t *testing.T) {
		sb, err := BuildQuery(stbl, fakeDialect{}, storage.Query{Collection: "recommendations"})
		require.NoError(t, err)

		query, args, err := sb.ToSql()
		require.NoError(t, err)
		require.Equal(t, "SELECT doc_id, data FROM document WHERE collection = ? ORDER BY doc_id ASC", query)
		require.Equal(t, []any{"recommendations"}, args)
	})

	t.Run("field_filter_ordered_descending", func(t *testing.T) {
		sb, err := BuildQuery(stbl, fakeDialect{}, storage.Query{
			Collection: "recommendations",
			Filter:     &storage.InFilter{Field: "userId", Values: []string{"alice", "bob"}},
			OrderBy:    "createdAt",
			Descending: true,
			Limit:      20,
		})
		require.NoError(t, err)

		query, args, err := sb.ToSql()
		require.NoError(t, err)
		require.Equal(t,
			"SELECT doc_id, data FROM document WHERE collection = ? AND txt(userId.s) IN (?,?) AND f(createdAt) IS NOT NULL "+
				"ORDER BY COALESCE(num(createdAt.t), num(createdAt.i), num(createdAt.f)) DESC, txt(createdAt.s) DESC, doc_id DESC LIMIT 20",
			query)
		require.Equal(t, []any{"recommendations", "alice", "bob"}, args)
	})

	t.Run("document_id_filter", func(t *testing.T) {
		sb, err := BuildQuery(stbl, fakeDialect{}, storage.Query{
			Collection: "users",
			Filter:     &storage.InFilter{Field: storage.DocumentIDField, Values: []string{"alice"}},
		})
		require.NoError(t, err)

		query, _, err := sb.ToSql()
		require.NoError(t, err)
		require.Equal(t, "SELECT doc_id, data FROM document WHERE collection = ? AND doc_id IN (?) ORDER BY doc_id ASC", query)
	})

	t.Run("rejects_unsafe_field_names", func(t *testing.T) {
		_, err := BuildQuery(stbl, fakeDialect{}, storage.Query{Collection: "users", OrderBy: "name'); DROP"})
		require.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig(WithMaxOpenConns(5), WithMetrics())

	require.NotNil(t, cfg.Logger)
	require.Equal(t, storage.DefaultMaxInValues, cfg.MaxInValues)
	require.Equal(t, 5, cfg.MaxOpenConns)
	require.True(t, cfg.ExportMetrics)
	require.Positive(t, cfg.SetMaxElapsedTime)
}
