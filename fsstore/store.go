package fsstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mugshot-app/mugshot"
)

// Store keeps every entry as a single file directly under Dir.
type Store struct {
	Dir string
}

var _ mugshot.ContentStore = (*Store)(nil)

func (s *Store) Put(key string, content []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create store dir: %w", err)
	}
	path := filepath.Join(s.Dir, key)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write entry: %w", err)
	}
	return path, nil
}

func (s *Store) Get(key string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(s.Dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, mugshot.ErrEntryNotFound
		}
		return nil, fmt.Errorf("read entry: %w", err)
	}
	return content, nil
}

func (s *Store) Delete(key string) error {
	err := os.Remove(filepath.Join(s.Dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove entry: %w", err)
	}
	return nil
}
