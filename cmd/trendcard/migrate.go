package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abdulachik/trendcard/internal/config"
	"github.com/abdulachik/trendcard/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Run all pending database migrations to set up or update the history schema.`,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForHistory(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	slog.Info("connecting to database", "path", cfg.DatabasePath)
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	applied, err := store.ApplyMigrations(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, "Schema is up to date.")
		return nil
	}
	for _, file := range applied {
		fmt.Fprintf(out, "Applied %s\n", file)
	}
	return nil
}
