package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

// ErrInvalidSession is returned when an access id has no live server-side session.
var ErrInvalidSession = errors.New("invalid or revoked session")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Manager tracks which access ids (JWT jti) are still signed in, so sign-out
// revokes a token before it expires and refresh can rotate it.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Store is the storage surface a Manager needs. The redis client satisfies it.
type Store interface {
	sessionStore
	sessionKeyer
}

// NewManager constructs a session manager. ttl bounds how long a session may be
// refreshed after its last rotation.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: store, keyer: store, ttl: ttl}, nil
}

// Open records a live session for accessID owned by userID.
func (m *Manager) Open(ctx context.Context, accessID string, userID uuid.UUID) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), userID.String(), m.ttl)
}

// Rotate invalidates oldAccessID and opens a new session for the same user.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string) (string, uuid.UUID, error) {
	if strings.TrimSpace(oldAccessID) == "" {
		return "", uuid.Nil, ErrInvalidSession
	}

	key := m.keyer.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		return "", uuid.Nil, wrapNotFound(err)
	}
	userID, err := uuid.Parse(stored)
	if err != nil {
		return "", uuid.Nil, ErrInvalidSession
	}

	newAccessID := NewAccessID()
	if err := m.Open(ctx, newAccessID, userID); err != nil {
		return "", uuid.Nil, err
	}
	if err := m.store.Del(ctx, key); err != nil {
		return "", uuid.Nil, err
	}
	return newAccessID, userID, nil
}

// Revoke deletes the session tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// HasSession reports whether the provided access ID is still signed in.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces a stable identifier used as the JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidSession
	}
	return err
}

// MemoryStore keeps sessions in process memory for deployments without redis.
// Missing or expired keys report redis.Nil so both stores behave alike.
type MemoryStore struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, data: map[string]memoryEntry{}}
}

func (s *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := memoryEntry{value: fmt.Sprint(value)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.data[key] = entry
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[key]
	if !ok {
		return "", redislib.Nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.data, key)
		return "", redislib.Nil
	}
	return entry.value, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *MemoryStore) AccessSessionKey(accessID string) string {
	return "wt:session:" + accessID
}
