package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/design-orders-backend/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить SQL миграции и выйти",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			conn, err := db.NewPostgres(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("main: ошибка подключения к базе: %w", err)
			}
			defer conn.Close()

			applied, err := db.RunMigrations(cmd.Context(), conn, cfg.MigrationsPath, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "применено миграций: %d\n", len(applied))
			return nil
		},
	}
}
