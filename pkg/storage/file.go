package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tmpPrefix = ".tmp-"

// FileStore keeps one file per key inside a per-profile directory.
// Writes go through a temp file and a rename so readers never see a torn value.
type FileStore struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
}

// NewFileStore creates <root>/<profile>. maxBytes <= 0 disables the quota.
func NewFileStore(root, profile string, maxBytes int64) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage: file root is required")
	}
	if err := validKey(profile); err != nil {
		return nil, fmt.Errorf("storage: profile: %w", err)
	}
	dir := filepath.Join(root, profile)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create profile dir: %w", err)
	}
	return &FileStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", key, err)
	}
	return string(data), nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 {
		used, err := s.usageExcluding(key)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.maxBytes {
			return ErrQuotaExceeded
		}
	}

	tmp, err := os.CreateTemp(s.dir, tmpPrefix+key+"-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("storage: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("storage: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		cleanup()
		return fmt.Errorf("storage: commit %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Dir returns the profile directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *FileStore) usageExcluding(key string) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("storage: list profile dir: %w", err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == key || strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}
