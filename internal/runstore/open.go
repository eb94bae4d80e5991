package runstore

import (
	"fmt"

	"github.com/hugo-lorenzo-mato/actionrun/internal/config"
	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// Open returns the backend selected by cfg.
func Open(cfg config.StoreConfig) (core.RunStore, error) {
	switch cfg.Backend {
	case "", config.StoreBackendMemory:
		return NewMemory(), nil
	case config.StoreBackendSQLite:
		return NewSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
