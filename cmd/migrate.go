package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lemans-dev/sdr-whatsapp/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Enable pgvector and create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.UseMemoryStore {
				return fmt.Errorf("migrate needs DATABASE_URL; USE_MEMORY_STORE is set")
			}

			db, err := database.Connect(cfg.Database, cfg.Server.Debug)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
