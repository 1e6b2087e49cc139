// Package database provides the SQL connection and transaction plumbing shared
// by the postgres and mysql key stores.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	apperrors "github.com/allisson/envelope/internal/errors"
)

// DefaultPingTimeout bounds the startup ping when Config.PingTimeout is zero.
const DefaultPingTimeout = 5 * time.Second

// supportedDrivers are the database/sql driver names a key store may use.
var supportedDrivers = map[string]bool{
	"postgres": true,
	"mysql":    true,
}

// Config holds database configuration settings.
type Config struct {
	Driver             string
	ConnectionString   string
	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	PingTimeout        time.Duration
}

// Connect opens the key store database and verifies it is reachable.
// An unsupported driver is invalid input; a database that cannot be reached
// within the ping timeout is reported as unavailable.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if !supportedDrivers[cfg.Driver] {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, apperrors.Join(
			apperrors.Wrapf(apperrors.ErrUnavailable, "key store database %s is unreachable", cfg.Driver),
			err,
		)
	}

	return db, nil
}
