package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KV is the persisted key-value store that holds the template list
type KV interface {
	// Get returns the value for key and whether it was present
	Get(key string) ([]byte, bool, error)
	// Set replaces the value for key
	Set(key string, value []byte) error
	// Close releases the backend
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

const (
	fileStoreName   = "store.json"
	sqliteStoreName = "store.db"
)

// Options selects and locates the backend
type Options struct {
	// Dir is the data directory. Empty means ~/.pocket-forms.
	Dir string
	// Backend is BackendFile (default) or BackendSQLite
	Backend string
}

// DefaultDir returns the default data directory
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pocket-forms"), nil
}

// ResolveDir returns dir, or the default data directory when dir is empty
func ResolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return DefaultDir()
}

// Open creates the configured backend under opts.Dir
func Open(opts Options) (KV, error) {
	dir, err := ResolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileKV(filepath.Join(dir, fileStoreName))
	case BackendSQLite:
		return NewSQLiteKV(filepath.Join(dir, sqliteStoreName))
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %s or %s)", opts.Backend, BackendFile, BackendSQLite)
	}
}

// StorePath returns the file that backs opts, for watching and diagnostics
func StorePath(opts Options) (string, error) {
	dir, err := ResolveDir(opts.Dir)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(opts.Backend, BackendSQLite) {
		return filepath.Join(dir, sqliteStoreName), nil
	}
	return filepath.Join(dir, fileStoreName), nil
}
