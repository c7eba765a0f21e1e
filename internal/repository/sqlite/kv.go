package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vcar-client/internal/logger"
	"vcar-client/internal/repository"
)

type kvRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewKVRepository(db *sql.DB) repository.KVStore {
	return &kvRepository{db: db, now: time.Now}
}

func (r *kvRepository) Get(ctx context.Context, key string) (string, bool, error) {
	logger.StoreCall("SELECT", key)

	var value string
	err := r.db.QueryRowContext(ctx, `SELECT state_value FROM client_state WHERE state_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		logger.StoreResult("SELECT", 0, nil, "key", key)
		return "", false, nil
	}
	if err != nil {
		logger.StoreResult("SELECT", 0, err, "key", key)
		return "", false, err
	}
	logger.StoreResult("SELECT", 1, nil, "key", key)
	return value, true, nil
}

func (r *kvRepository) Set(ctx context.Context, key, value string) error {
	logger.StoreCall("UPSERT", key)

	query := `INSERT INTO client_state (state_key, state_value, updated_on) VALUES (?, ?, ?)
	          ON CONFLICT(state_key) DO UPDATE SET state_value = excluded.state_value, updated_on = excluded.updated_on`
	result, err := r.db.ExecContext(ctx, query, key, value, r.now().UTC().Format(time.RFC3339))
	if err != nil {
		logger.StoreResult("UPSERT", 0, err, "key", key)
		return err
	}
	rows, _ := result.RowsAffected()
	logger.StoreResult("UPSERT", rows, nil, "key", key)
	return nil
}

func (r *kvRepository) Delete(ctx context.Context, key string) error {
	logger.StoreCall("DELETE", key)

	result, err := r.db.ExecContext(ctx, `DELETE FROM client_state WHERE state_key = ?`, key)
	if err != nil {
		logger.StoreResult("DELETE", 0, err, "key", key)
		return err
	}
	rows, _ := result.RowsAffected()
	logger.StoreResult("DELETE", rows, nil, "key", key)
	return nil
}
