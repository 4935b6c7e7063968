// Package file implements kv.Slot on the local filesystem: one file per key
// under a root directory, replaced atomically on every save.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"leadcrm/internal/infra/kv"
)

// Slot implements kv.Slot using the local filesystem.
type Slot struct {
	root string
}

// New returns a filesystem-backed slot rooted at root, creating it if needed.
func New(root string) (*Slot, error) {
	if root == "" {
		root = "./leadcrm-data"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create slot root: %w", err)
	}
	return &Slot{root: root}, nil
}

// Driver returns the slot driver identifier.
func (s *Slot) Driver() kv.Driver { return kv.DriverFile }

// Root returns the configured directory.
func (s *Slot) Root() string { return s.root }

// sanitizeKey forbids path traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if err := kv.CheckKey(key); err != nil {
		return "", err
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Slot) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, k+".json"), nil
}

// Load reads the payload stored under key.
func (s *Slot) Load(_ context.Context, key string) ([]byte, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, false, err
	}
	// #nosec G304 -- path is sanitized and rooted under s.root
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Save writes payload to a temp file and renames it over the previous value.
func (s *Slot) Save(_ context.Context, key string, payload []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// Close is a no-op.
func (s *Slot) Close() error { return nil }
