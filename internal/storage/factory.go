// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openroads/drivecore/internal/config"
	"github.com/openroads/drivecore/internal/database"
	"github.com/openroads/drivecore/internal/storage/gormdb"
	"github.com/openroads/drivecore/internal/storage/memory"
)

// NewBackend creates a recording backend based on configuration.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "postgres", "sqlite":
		mgr := database.NewManager(log)
		if cfg.Type == "sqlite" {
			mgr.SqliteFilePath = config.GetString("storage.sqlitePath")
			db, err := mgr.GetSqliteDB(mgr.SqliteFilePath)
			if err != nil {
				return nil, fmt.Errorf("opening sqlite: %w", err)
			}
			return gormdb.New(db, log), nil
		}
		if err := mgr.Connect(); err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		return gormdb.New(mgr.DB, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
