// Package store persists opaque account records. Keys and values are byte
// blobs; callers own the serialization.
package store

import (
	"errors"
	"fmt"

	"feedgate/internal/config"
	"feedgate/internal/interfaces"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("store: key not found")
	// ErrEmptyKey is returned for zero-length keys.
	ErrEmptyKey = errors.New("store: empty key")
)

// Open returns the backend selected by cfg.Driver.
func Open(cfg config.StoreConfig, db config.DatabaseConfig) (interfaces.Store, error) {
	switch cfg.Driver {
	case "bolt":
		return OpenBolt(cfg.Path)
	case "postgres":
		return OpenPostgres(db)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
