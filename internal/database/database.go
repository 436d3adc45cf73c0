// Package database wires the SQLite connection and goose migrations shared
// by every persistence-backed package in this repository.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DB wraps the database connection.
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection with SQLite, WAL mode enabled.
func New(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows only one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY under WAL with concurrent callers.
	conn.SetMaxOpenConns(1)

	return &DB{conn: conn, path: path}, nil
}

// Conn returns the underlying *sql.DB.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Migrate applies all pending goose migrations.
func (d *DB) Migrate() error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(d.conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrationStatus reports the current migration version.
func (d *DB) MigrationStatus() (int64, error) {
	goose.SetBaseFS(embedMigrations)
	return goose.GetDBVersion(d.conn)
}
