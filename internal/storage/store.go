package storage

import (
	"fmt"
	"path/filepath"

	"github.com/valter-silva-au/build-brain/internal/core"
	"github.com/valter-silva-au/build-brain/pkg/models"
)

// OpenTaskStore opens the task store selected by cfg. Relative sqlite paths
// and the yaml store directory are resolved against basePath.
func OpenTaskStore(cfg models.StorageConfig, basePath string) (core.TaskStore, error) {
	switch cfg.Driver {
	case "", models.StorageYAML:
		dir := basePath
		if cfg.DSN != "" {
			dir = resolvePath(basePath, cfg.DSN)
		}
		return NewFileProjectStore(dir), nil
	case models.StorageSQLite:
		path := cfg.DSN
		if path == "" {
			path = DefaultSQLiteFile
		}
		return OpenSQLiteStore(resolvePath(basePath, path))
	case models.StoragePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("opening postgres store: storage.dsn is required")
		}
		return OpenPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func resolvePath(basePath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}
