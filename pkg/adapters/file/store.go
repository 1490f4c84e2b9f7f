package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FlagStore implements ports.FlagStore as a single JSON document on disk.
type FlagStore struct {
	Path string
	mu   sync.Mutex
}

// NewFlagStore creates a store backed by path.
// If path is empty, it defaults to ".geofence/flags.json".
func NewFlagStore(path string) *FlagStore {
	if path == "" {
		path = filepath.Join(".geofence", "flags.json")
	}
	return &FlagStore{Path: path}
}

// GetFlag returns the stored value, false when the key or the file is absent.
func (s *FlagStore) GetFlag(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags, err := s.read()
	if err != nil {
		return false, err
	}
	return flags[key], nil
}

// SetFlag stores the value and rewrites the file atomically.
func (s *FlagStore) SetFlag(ctx context.Context, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags, err := s.read()
	if err != nil {
		return err
	}
	flags[key] = value
	return s.write(flags)
}

func (s *FlagStore) read() (map[string]bool, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("failed to read flag file: %w", err)
	}
	flags := map[string]bool{}
	if err := json.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
	}
	return flags, nil
}

// write replaces the file via a temp file in the same directory, fsync and rename.
func (s *FlagStore) write(flags map[string]bool) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure flag directory: %w", err)
	}

	data, err := json.MarshalIndent(flags, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "tmp-flags-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(s.Path); err == nil {
		if err := os.Remove(s.Path); err != nil {
			return fmt.Errorf("failed to remove existing flag file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
