// Package storage persists accounts, profiles, foods, meals and daily logs in
// a single SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store is safe for concurrent use. All access goes through one connection,
// so writers are serialized by database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file if needed and migrates it to the current
// schema version.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// migrations[i] moves the schema from version i to i+1.
var migrations = []string{
	`
	CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX idx_sessions_user ON sessions(user_id);

	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		gender TEXT NOT NULL,
		height REAL NOT NULL,
		weight REAL NOT NULL,
		measurements_updated_at TEXT NOT NULL,
		activity_level TEXT NOT NULL,
		nutrition_goal TEXT NOT NULL,
		target_calories INTEGER NOT NULL,
		target_protein REAL NOT NULL,
		target_carbs REAL NOT NULL,
		target_fat REAL NOT NULL,
		bmr INTEGER NOT NULL,
		tdee INTEGER NOT NULL,
		goals_updated_at TEXT NOT NULL,
		units TEXT NOT NULL,
		notifications INTEGER NOT NULL,
		theme TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE foods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		name_indonesian TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		calories REAL NOT NULL,
		protein REAL NOT NULL,
		carbs REAL NOT NULL,
		fat REAL NOT NULL,
		fiber REAL NOT NULL,
		sugar REAL NOT NULL,
		sodium REAL NOT NULL,
		serving_amount REAL NOT NULL,
		serving_unit TEXT NOT NULL,
		barcode TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		is_verified INTEGER NOT NULL,
		source TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX idx_foods_name ON foods(name COLLATE NOCASE);
	CREATE INDEX idx_foods_category ON foods(category);
	CREATE UNIQUE INDEX idx_foods_barcode ON foods(barcode) WHERE barcode <> '';

	CREATE TABLE meals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		food_id TEXT NOT NULL DEFAULT '',
		food_name TEXT NOT NULL,
		date TEXT NOT NULL,
		meal_type TEXT NOT NULL,
		portion REAL NOT NULL,
		calories REAL NOT NULL,
		protein REAL NOT NULL,
		carbs REAL NOT NULL,
		fat REAL NOT NULL,
		fiber REAL NOT NULL,
		sugar REAL NOT NULL,
		sodium REAL NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX idx_meals_user_date ON meals(user_id, date);

	CREATE TABLE daily_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		calories REAL NOT NULL,
		protein REAL NOT NULL,
		carbs REAL NOT NULL,
		fat REAL NOT NULL,
		fiber REAL NOT NULL,
		sugar REAL NOT NULL,
		sodium REAL NOT NULL,
		meal_count INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, date)
	);
	`,
}

// SchemaVersion is the version Open migrates to.
var SchemaVersion = len(migrations)

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, len(migrations))
	}
	for v := version; v < len(migrations); v++ {
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1))
			return err
		})
		if err != nil {
			return fmt.Errorf("migrate schema to version %d: %w", v+1, err)
		}
	}
	return nil
}

// withTx runs fn in a transaction. Inside fn, use tx only: the pool holds a
// single connection.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUnique reports whether err is a UNIQUE or PRIMARY KEY violation.
func isUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
