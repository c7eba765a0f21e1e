package repository

import (
	"context"
)

// KVStore is the client-persisted key/value state (tokens, cached profile,
// role). Get reports found=false for an absent key.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
