// Package migrate applies the embedded schema migrations of the SQL datastores.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/tcgun/tavsiyece-sub000/assets"
	"github.com/tcgun/tavsiyece-sub000/pkg/logger"
	"github.com/tcgun/tavsiyece-sub000/pkg/storage/sqlite"
)

// MigrationConfig contains the configuration needed for running migrations.
type MigrationConfig struct {
	Engine string
	URI    string
	// TargetVersion 0 migrates to the latest version.
	TargetVersion uint
	Timeout       time.Duration
	Verbose       bool
	Username      string
	Password      string
	Logger        logger.Logger
}

type engine struct {
	driver  string
	dialect goose.Dialect
	dir     string
}

var engines = map[string]engine{
	"postgres": {driver: "pgx", dialect: goose.DialectPostgres, dir: assets.PostgresMigrationDir},
	"mysql":    {driver: "mysql", dialect: goose.DialectMySQL, dir: assets.MySQLMigrationDir},
	"sqlite":   {driver: "sqlite", dialect: goose.DialectSQLite3, dir: assets.SqliteMigrationDir},
}

// RunMigrations runs the migrations for the given config. Migrating down to a
// lower TargetVersion is supported.
func RunMigrations(cfg MigrationConfig) error {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNoopLogger()
	}

	if cfg.Engine == "memory" || cfg.Engine == "firestore" {
		log.Info("no migrations to run", zap.String("engine", cfg.Engine))
		return nil
	}

	ctx := context.Background()
	provider, db, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	currentVersion, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get %s db version: %w", cfg.Engine, err)
	}

	log.Info("current schema version", zap.String("engine", cfg.Engine), zap.Int64("version", currentVersion))

	target := int64(cfg.TargetVersion)
	switch {
	case target == 0:
		log.Info("running all migrations", zap.String("engine", cfg.Engine))
		_, err = provider.Up(ctx)
	case target < currentVersion:
		log.Info("migrating down", zap.String("engine", cfg.Engine), zap.Int64("target", target))
		_, err = provider.DownTo(ctx, target)
	case target > currentVersion:
		log.Info("migrating up", zap.String("engine", cfg.Engine), zap.Int64("target", target))
		_, err = provider.UpTo(ctx, target)
	default:
		log.Info("nothing to do", zap.String("engine", cfg.Engine))
		return nil
	}
	if err != nil {
		return fmt.Errorf("run %s migrations: %w", cfg.Engine, err)
	}

	log.Info("migration done", zap.String("engine", cfg.Engine))
	return nil
}

// CurrentVersion returns the schema version the database is at.
func CurrentVersion(ctx context.Context, cfg MigrationConfig) (int64, error) {
	provider, db, err := newProvider(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	return provider.GetDBVersion(ctx)
}

func newProvider(ctx context.Context, cfg MigrationConfig) (*goose.Provider, *sql.DB, error) {
	e, ok := engines[cfg.Engine]
	if !ok {
		return nil, nil, fmt.Errorf("unknown datastore engine type: %s", cfg.Engine)
	}

	uri, err := prepareURI(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(e.driver, uri)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s connection: %w", cfg.Engine, err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.Timeout
	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize %s connection: %w", cfg.Engine, err)
	}

	migrations, err := fs.Sub(assets.EmbedMigrations, e.dir)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	provider, err := goose.NewProvider(e.dialect, db, migrations, goose.WithVerbose(cfg.Verbose))
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create %s migration provider: %w", cfg.Engine, err)
	}

	return provider, db, nil
}

func prepareURI(cfg MigrationConfig) (string, error) {
	switch cfg.Engine {
	case "sqlite":
		return sqlite.PrepareDSN(cfg.URI)
	case "mysql":
		if cfg.Username == "" && cfg.Password == "" {
			return cfg.URI, nil
		}
		dsnCfg, err := mysql.ParseDSN(cfg.URI)
		if err != nil {
			return "", fmt.Errorf("parse mysql connection dsn: %w", err)
		}
		if cfg.Username != "" {
			dsnCfg.User = cfg.Username
		}
		if cfg.Password != "" {
			dsnCfg.Passwd = cfg.Password
		}
		return dsnCfg.FormatDSN(), nil
	case "postgres":
		if cfg.Username == "" && cfg.Password == "" {
			return cfg.URI, nil
		}
		parsed, err := url.Parse(cfg.URI)
		if err != nil {
			return "", fmt.Errorf("parse postgres connection uri: %w", err)
		}
		username := cfg.Username
		if username == "" && parsed.User != nil {
			username = parsed.User.Username()
		}
		password := cfg.Password
		if password == "" && parsed.User != nil {
			password, _ = parsed.User.Password()
		}
		parsed.User = url.UserPassword(username, password)
		return parsed.String(), nil
	}
	return cfg.URI, nil
}
