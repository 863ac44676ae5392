// Package storage holds the client-local key/value state of one profile:
// the persisted cart and the restored auth token.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wanterio/wanterio-backend/pkg/config"
)

var (
	// ErrNotFound is returned by Get when nothing is stored under the key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the store quota.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Store is the local persistence contract used by the state managers.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Open builds the store selected by cfg. kv is required only for the redis driver.
func Open(cfg config.StorageConfig, kv KV) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.StorageDriverFile:
		return NewFileStore(cfg.Dir, cfg.Profile, cfg.MaxBytes)
	case config.StorageDriverRedis:
		if kv == nil {
			return nil, errors.New("storage: redis driver selected but redis is not configured")
		}
		return NewRedisStore(kv, cfg.Profile), nil
	case config.StorageDriverMemory:
		return NewMemoryStore(cfg.MaxBytes), nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}

func validKey(key string) error {
	if key == "" {
		return errors.New("storage: key is required")
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return fmt.Errorf("storage: invalid character %q in key %q", r, key)
		}
	}
	if key == "." || key == ".." {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}
