package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresSchema = []string{`
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    protein_goal TEXT NOT NULL DEFAULT '0',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, `
CREATE TABLE IF NOT EXISTS entries (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT UNIQUE NOT NULL,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    meal_name TEXT NOT NULL,
    protein_amount DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS entries_user_seq_idx ON entries (user_id, seq);`,
}

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT UNIQUE NOT NULL,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    protein_goal TEXT NOT NULL DEFAULT '0',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`, `
CREATE TABLE IF NOT EXISTS entries (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    meal_name TEXT NOT NULL,
    protein_amount REAL NOT NULL,
    created_at DATETIME NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS entries_user_seq_idx ON entries (user_id, seq);`,
}

// RunMigrations creates the schema for the dialect behind db. It is safe to run on every start.
func RunMigrations(db *sqlx.DB) error {
	var stmts []string
	switch db.DriverName() {
	case "pgx", "postgres":
		stmts = postgresSchema
	case "sqlite", "sqlite3":
		stmts = sqliteSchema
	default:
		return fmt.Errorf("migrate: unsupported driver %q", db.DriverName())
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
