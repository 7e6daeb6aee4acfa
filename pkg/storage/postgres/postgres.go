package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlcommon"
)

// Dialect renders document expressions with the PostgreSQL jsonb operators.
type Dialect struct{}

var _ sqlcommon.Dialect = Dialect{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) PlaceholderFormat() sq.PlaceholderFormat { return sq.Dollar }

func (Dialect) FieldExpr(field string) string {
	return fmt.Sprintf("(data->'%s')", field)
}

func (Dialect) TextExpr(field, tag string) string {
	return fmt.Sprintf("(data->'%s'->>'%s')", field, tag)
}

func (Dialect) NumberExpr(field, tag string) string {
	return fmt.Sprintf("(data->'%s'->>'%s')::numeric", field, tag)
}

func (Dialect) LockSuffix() string { return "FOR UPDATE" }

// TranslateError see [sqlcommon.Dialect].TranslateError.
func (Dialect) TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if strings.Contains(err.Error(), "duplicate key value") {
			return fmt.Errorf("%w: write conflict: %w", storage.ErrTransient, err)
		}
		return nil
	}

	switch {
	case pgErr.Code == "23505":
		return fmt.Errorf("%w: write conflict: %w", storage.ErrTransient, err)
	case pgErr.Code == "42501":
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01",
		strings.HasPrefix(pgErr.Code, "08"):
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}

	return nil
}

// initDB initializes a new postgres database connection.
func initDB(uri string, cfg *sqlcommon.Config) (*sql.DB, error) {
	if cfg.Username != "" || cfg.Password != "" {
		parsed, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parse postgres connection uri: %w", err)
		}

		username := ""
		if cfg.Username != "" {
			username = cfg.Username
		} else if parsed.User != nil {
			username = parsed.User.Username()
		}

		switch {
		case cfg.Password != "":
			parsed.User = url.UserPassword(username, cfg.Password)
		case parsed.User != nil:
			if password, ok := parsed.User.Password(); ok {
				parsed.User = url.UserPassword(username, password)
			} else {
				parsed.User = url.User(username)
			}
		default:
			parsed.User = url.User(username)
		}

		uri = parsed.String()
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres connection: %w", err)
	}

	return db, nil
}

// New creates a new PostgreSQL backed [sqlcommon.Datastore].
func New(uri string, cfg *sqlcommon.Config) (*sqlcommon.Datastore, error) {
	db, err := initDB(uri, cfg)
	if err != nil {
		return nil, err
	}

	if err := sqlcommon.WaitForDB(context.Background(), db, time.Minute, cfg.Logger); err != nil {
		db.Close()
		return nil, err
	}

	return sqlcommon.NewDatastore(db, Dialect{}, cfg)
}
