package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Run store backends accepted by NewStore.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

var ErrUnsupportedBackend = errors.New("unsupported store backend")

// ParseKind normalizes a backend name. An empty name selects the memory store.
func ParseKind(kind string) (string, error) {
	switch k := strings.ToLower(strings.TrimSpace(kind)); k {
	case "", KindMemory:
		return KindMemory, nil
	case KindSQLite:
		return KindSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedBackend, kind)
	}
}

// NewStore opens the run store for kind. dbPath is only used by the sqlite
// backend.
func NewStore(kind, dbPath string) (Store, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if k == KindSQLite {
		if strings.TrimSpace(dbPath) == "" {
			return nil, fmt.Errorf("sqlite run store requires a database path")
		}
		return newSQLiteStore(dbPath)
	}
	return NewMemoryStore(), nil
}

// CloseIfSupported releases backends that hold a handle. The memory store
// has nothing to close.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
