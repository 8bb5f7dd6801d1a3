// Package db opens the serving database for the gateway. Both drivers hand
// back a plain *sql.DB; read-only enforcement happens per statement in the
// query engines, with the sqlite DSN adding a connection-level layer on top.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("sqlite database %q: %w", cfg.Path, err)
	}

	// mode=ro refuses write opens at the VFS level; query_only(1) is applied
	// to every pooled connection as it is created.
	dsn := "file:" + cfg.Path + "?mode=ro&_pragma=query_only(1)&_pragma=busy_timeout(5000)"
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	applyPool(handle, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxIdleTime, cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := handle.PingContext(pingCtx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return handle, nil
}

func applyPool(handle *sql.DB, maxOpen, maxIdle int, maxIdleTime, maxLifetime time.Duration) {
	if maxOpen > 0 {
		handle.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		handle.SetMaxIdleConns(maxIdle)
	}
	if maxIdleTime > 0 {
		handle.SetConnMaxIdleTime(maxIdleTime)
	}
	if maxLifetime > 0 {
		handle.SetConnMaxLifetime(maxLifetime)
	}
}
