package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"vcar-client/internal/logger"
	"vcar-client/internal/repository"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS client_state (
	state_key   TEXT PRIMARY KEY,
	state_value TEXT NOT NULL,
	updated_on  TEXT NOT NULL
)`

type Store struct {
	db *sql.DB
	repository.KVStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		KVStore: NewKVRepository(db),
	}
}

// Open opens (creating if needed) the state database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between the poller and commands
	db.SetMaxOpenConns(1)

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("State database ready", "path", path)
	return NewStore(db), nil
}

// Migrate creates the state table if it does not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate state db: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
