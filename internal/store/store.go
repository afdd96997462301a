// Package store persists users and entries with sqlx. It speaks both Postgres (pgx) and SQLite
// (modernc), chosen by the DATABASE_URL scheme.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"icarus/internal/services"
)

const sqlitePrefix = "sqlite:"

// Store implements entries.Store plus the user lookups the auth handlers need.
type Store struct {
	db  *sqlx.DB
	enc *services.EncryptionService
}

// New wraps an open connection. enc may be nil, in which case meal names are stored as given.
func New(db *sqlx.DB, enc *services.EncryptionService) *Store {
	return &Store{db: db, enc: enc}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Open connects to databaseURL. "sqlite:<path>" (or "sqlite::memory:") selects SQLite,
// anything else is handed to pgx as a Postgres DSN.
func Open(databaseURL string) (*sqlx.DB, error) {
	if path, ok := strings.CutPrefix(databaseURL, sqlitePrefix); ok {
		return openSQLite(path)
	}

	conn, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(2 * time.Hour)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return conn, nil
}

func openSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" a single database
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	return conn, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE"))
	}
	return false
}
