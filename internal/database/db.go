// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package database opens the SQLite store and keeps its schema up to
// date from the embedded migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

const defaultDSN = "./data/rsvp.db"

// Open connects to the SQLite database, applies the connection
// defaults this service relies on and brings the schema up to date.
func Open(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}

	if !inMemory(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, err
		}
	}

	conn, err := sqlx.Open("sqlite", withConnDefaults(dsn))
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	if err := tune(context.Background(), conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := migrate(conn.DB); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func inMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// withConnDefaults appends the DSN parameters the service depends on
// unless the caller already set them. _txlock=immediate makes the
// deactivate-then-insert token transaction take the write lock up
// front; _foreign_keys backs the token -> guest reference.
func withConnDefaults(dsn string) string {
	for key, value := range map[string]string{
		"_txlock":       "immediate",
		"_busy_timeout": "5000",
		"_foreign_keys": "on",
	} {
		if strings.Contains(dsn, key) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + key + "=" + value
	}
	return dsn
}

// tune applies the session pragmas. WAL keeps token validation reads
// open while a bulk send appends to the communication log.
func tune(ctx context.Context, db *sqlx.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return err
		}
	}
	return nil
}

// migrate runs all pending goose migrations from the embedded FS.
// Forward-only: the token and communication tables are append-heavy
// audit stores, so rollbacks are not part of the deployment story.
func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}
