package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryDir opens a private in-memory database instead of a file.
const MemoryDir = ":memory:"

const dbFile = "nutriwheel.db"

// Store is the SQLite database behind the health profile, the meal journal
// and the analysis job queue.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database in dataDir and brings its schema up
// to date. Pass MemoryDir for a throwaway database.
func Open(dataDir string) (*Store, error) {
	dsn := MemoryDir
	if dataDir != MemoryDir {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, dbFile)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	// A single connection serialises writers, and an in-memory database
	// only exists per connection.
	s.db.SetMaxOpenConns(1)

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(s.db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping reports whether the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// SetProfileKey upserts one profile field.
func (s *Store) SetProfileKey(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO user_profile (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing profile %s: %w", key, err)
	}
	return nil
}

// GetProfileKey returns ErrNotFound for a field that was never set.
func (s *Store) GetProfileKey(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM user_profile WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) GetAllProfileKeys() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM user_profile`)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	defer rows.Close()

	fields := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		fields[k] = v
	}
	return fields, rows.Err()
}
