// Package database opens the SQL database the repositories run on.
package database

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-content-repository/config"
)

// Supported drivers.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
)

// Open connects to the configured database and returns a bun handle. The
// connection is checked with a ping before returning.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	if cfg.Driver != DriverMattn && cfg.Driver != DriverModernc {
		return nil, goerrors.New("unsupported database driver", goerrors.CategoryBadInput).
			WithTextCode("UNSUPPORTED_DRIVER").
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open database failed")
	}
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	// in-memory databases vanish with their last connection
	sqldb.SetConnMaxLifetime(0)

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "ping database failed").
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
