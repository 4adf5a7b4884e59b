package main

import (
	"fmt"
	"log/slog"

	"github.com/tmdojo/viewer/internal/config"
	"github.com/tmdojo/viewer/internal/database"
	"github.com/tmdojo/viewer/internal/storage"
	gormstorage "github.com/tmdojo/viewer/internal/storage/gorm"
	"github.com/tmdojo/viewer/internal/storage/memory"
	sqlitestorage "github.com/tmdojo/viewer/internal/storage/sqlite"
)

func createStorageBackend(storageCfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		db, err := database.OpenPostgres(storageCfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		logger.Info("Postgres storage backend initialized", "host", storageCfg.Postgres.Host, "database", storageCfg.Postgres.Database)
		return gormstorage.New(db), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.Path,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.Path)
		return backend, nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "maxEntries", storageCfg.Memory.MaxEntries)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
