package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlcommon"
)

// Prepare a raw DSN from config for use with SQLite, specifying defaults for journal mode and busy timeout.
func PrepareDSN(uri string) (string, error) {
	// Set journal mode and busy timeout pragmas if not specified.
	query := url.Values{}
	var err error

	if i := strings.Index(uri, "?"); i != -1 {
		query, err = url.ParseQuery(uri[i+1:])
		if err != nil {
			return uri, fmt.Errorf("error parsing dsn: %w", err)
		}

		uri = uri[:i]
	}

	foundJournalMode := false
	foundBusyTimeout := false
	for _, val := range query["_pragma"] {
		if strings.HasPrefix(val, "journal_mode") {
			foundJournalMode = true
		} else if strings.HasPrefix(val, "busy_timeout") {
			foundBusyTimeout = true
		}
	}

	if !foundJournalMode {
		query.Add("_pragma", "journal_mode(WAL)")
	}
	if !foundBusyTimeout {
		query.Add("_pragma", "busy_timeout(100)")
	}

	// Set transaction mode to immediate if not specified
	if !query.Has("_txlock") {
		query.Set("_txlock", "immediate")
	}

	uri += "?" + query.Encode()

	return uri, nil
}

// Dialect renders document expressions with the SQLite JSON1 functions.
type Dialect struct{}

var _ sqlcommon.Dialect = Dialect{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }

func (Dialect) FieldExpr(field string) string {
	return fmt.Sprintf("json_extract(data, '$.%s')", field)
}

func (Dialect) TextExpr(field, tag string) string {
	return fmt.Sprintf("json_extract(data, '$.%s.%s')", field, tag)
}

func (Dialect) NumberExpr(field, tag string) string {
	return fmt.Sprintf("json_extract(data, '$.%s.%s')", field, tag)
}

// LockSuffix is empty: transactions are opened with _txlock=immediate, which
// takes the write lock up front.
func (Dialect) LockSuffix() string { return "" }

var busyErrors = map[int]struct{}{
	sqlite3.SQLITE_BUSY_RECOVERY:      {},
	sqlite3.SQLITE_BUSY_SNAPSHOT:      {},
	sqlite3.SQLITE_BUSY_TIMEOUT:       {},
	sqlite3.SQLITE_BUSY:               {},
	sqlite3.SQLITE_LOCKED_SHAREDCACHE: {},
	sqlite3.SQLITE_LOCKED:             {},
}

// TranslateError see [sqlcommon.Dialect].TranslateError.
func (Dialect) TranslateError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}

	if _, ok := busyErrors[sqliteErr.Code()]; ok {
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}

	switch sqliteErr.Code() & 0xFF {
	case sqlite3.SQLITE_CONSTRAINT:
		return fmt.Errorf("%w: write conflict: %w", storage.ErrTransient, err)
	case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY:
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}

	return nil
}

// New creates a new SQLite backed [sqlcommon.Datastore]. The schema must
// have been migrated beforehand.
func New(uri string, cfg *sqlcommon.Config) (*sqlcommon.Datastore, error) {
	uri, err := PrepareDSN(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}

	if err := sqlcommon.WaitForDB(context.Background(), db, 10*time.Second, cfg.Logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite connection: %w", err)
	}

	return sqlcommon.NewDatastore(db, Dialect{}, cfg)
}
