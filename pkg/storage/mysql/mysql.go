package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"

	"github.com/tcgun/tavsiyece-sub000/pkg/storage"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlcommon"
)

// Dialect renders document expressions with the MySQL JSON functions.
type Dialect struct{}

var _ sqlcommon.Dialect = Dialect{}

func (Dialect) Name() string { return "mysql" }

func (Dialect) PlaceholderFormat() sq.PlaceholderFormat { return sq.Question }

func (Dialect) FieldExpr(field string) string {
	return fmt.Sprintf("JSON_EXTRACT(data, '$.%s')", field)
}

func (Dialect) TextExpr(field, tag string) string {
	return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(data, '$.%s.%s'))", field, tag)
}

func (Dialect) NumberExpr(field, tag string) string {
	return fmt.Sprintf("CAST(JSON_EXTRACT(data, '$.%s.%s') AS DECIMAL(38,9))", field, tag)
}

func (Dialect) LockSuffix() string { return "FOR UPDATE" }

// TranslateError see [sqlcommon.Dialect].TranslateError.
func (Dialect) TranslateError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		if errors.Is(err, mysql.ErrInvalidConn) {
			return fmt.Errorf("%w: %w", storage.ErrTransient, err)
		}
		return nil
	}

	switch me.Number {
	case 1062:
		return fmt.Errorf("%w: write conflict: %w", storage.ErrTransient, err)
	case 1044, 1045, 1142:
		return fmt.Errorf("%w: %w", storage.ErrPermissionDenied, err)
	case 1205, 1213:
		return fmt.Errorf("%w: %w", storage.ErrTransient, err)
	}

	return nil
}

// New creates a new MySQL backed [sqlcommon.Datastore].
func New(uri string, cfg *sqlcommon.Config) (*sqlcommon.Datastore, error) {
	if cfg.Username != "" || cfg.Password != "" {
		dsnCfg, err := mysql.ParseDSN(uri)
		if err != nil {
			return nil, fmt.Errorf("parse mysql connection dsn: %w", err)
		}

		if cfg.Username != "" {
			dsnCfg.User = cfg.Username
		}
		if cfg.Password != "" {
			dsnCfg.Passwd = cfg.Password
		}

		uri = dsnCfg.FormatDSN()
	}

	db, err := sql.Open("mysql", uri)
	if err != nil {
		return nil, fmt.Errorf("initialize mysql connection: %w", err)
	}

	if err := sqlcommon.WaitForDB(context.Background(), db, time.Minute, cfg.Logger); err != nil {
		db.Close()
		return nil, err
	}

	return sqlcommon.NewDatastore(db, Dialect{}, cfg)
}
