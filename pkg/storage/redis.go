package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	redispkg "github.com/wanterio/wanterio-backend/pkg/redis"
)

// KV is the subset of the redis client used by RedisStore.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	LocalStateKey(profile, key string) string
}

// RedisStore keeps profile state in redis, so several processes can share one profile.
type RedisStore struct {
	kv      KV
	profile string
}

func NewRedisStore(kv KV, profile string) *RedisStore {
	return &RedisStore{kv: kv, profile: profile}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	value, err := s.kv.Get(ctx, s.kv.LocalStateKey(s.profile, key))
	if errors.Is(err, redispkg.ErrNil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.kv.LocalStateKey(s.profile, key), value, 0); err != nil {
		return fmt.Errorf("storage: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, s.kv.LocalStateKey(s.profile, key)); err != nil {
		return fmt.Errorf("storage: redis delete %s: %w", key, err)
	}
	return nil
}
