package cmd

import (
	"log/slog"

	"github.com/lemans-dev/sdr-whatsapp/database"
	"github.com/lemans-dev/sdr-whatsapp/internal/config"
	"github.com/lemans-dev/sdr-whatsapp/internal/storage"
)

// appStore is satisfied by both storage backends.
type appStore interface {
	storage.Store
	storage.KnowledgeStore
}

// openStore connects to PostgreSQL, or returns the in-memory store when
// USE_MEMORY_STORE is set. The returned func releases the pool.
func openStore(cfg *config.Config, migrate bool) (appStore, func(), error) {
	if cfg.UseMemoryStore {
		slog.Warn("using in-memory storage (not for production!)")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Connect(cfg.Database, cfg.Server.Debug)
	if err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	if migrate {
		if err := database.Migrate(db); err != nil {
			closeDB()
			return nil, nil, err
		}
	}

	return storage.NewDatabaseStore(db), closeDB, nil
}
