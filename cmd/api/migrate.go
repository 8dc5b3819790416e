package main

import (
	"fulfillment/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.NewConnection(cfg.Database, log)
		if err != nil {
			return err
		}
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		log.Info("database migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
