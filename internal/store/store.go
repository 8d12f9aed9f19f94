package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imgharvest/internal/imgurl"
)

// defaultExtension is used when a URL path carries no usable suffix.
const defaultExtension = ".jpg"

// Store writes image binaries to a flat directory. Filenames derive from a
// hash of the source URL, so repeated downloads of the same URL map to the
// same file and re-runs are idempotent on disk.
type Store struct {
	dir string
}

// New creates the destination directory if absent and returns a store.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("destination directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the destination directory.
func (s *Store) Dir() string { return s.dir }

// Filename computes the destination filename for a source URL: the hex hash
// of the URL string plus the path extension (default when absent).
func Filename(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return hex.EncodeToString(sum[:]) + imgurl.Extension(sourceURL, defaultExtension)
}

// PathFor returns the full destination path for a source URL.
func (s *Store) PathFor(sourceURL string) string {
	return filepath.Join(s.dir, Filename(sourceURL))
}

// Exists reports whether the file for a source URL is already on disk.
func (s *Store) Exists(sourceURL string) (bool, error) {
	_, err := os.Stat(s.PathFor(sourceURL))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", s.PathFor(sourceURL), err)
}

// Save persists the whole body under the computed path and returns it. The
// write is a single whole-file operation, so a concurrent duplicate writer
// at worst rewrites identical bytes.
func (s *Store) Save(sourceURL string, body []byte) (string, error) {
	path := s.PathFor(sourceURL)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
