package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdulachik/trendcard/internal/card"
	"github.com/abdulachik/trendcard/internal/config"
	"github.com/abdulachik/trendcard/internal/db"
)

var (
	statsRoom   string
	statsRecent int64
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history statistics",
	Long:  `Display how many trends each room has shown and how their narrations ended.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsRoom, "room", "", "also list the latest trends of this room")
	statsCmd.Flags().Int64Var(&statsRecent, "recent", 5, "number of latest trends to list")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForHistory(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	// Ensure migrations are run
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	rooms, err := store.CountTrendsByRoom(ctx)
	if err != nil {
		return fmt.Errorf("count trends by room: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Trendcard Statistics ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Database: %s\n", cfg.DatabasePath)
	fmt.Fprintln(out)

	if len(rooms) == 0 {
		fmt.Fprintln(out, "No trends recorded yet.")
	}

	for _, room := range rooms {
		fmt.Fprintf(out, "Room %s:\n", room.Room)
		fmt.Fprintf(out, "  Trends shown: %d\n", room.Count)

		outcomes, err := store.CountNarrationsByOutcome(ctx, room.Room)
		if err != nil {
			return fmt.Errorf("count narrations: %w", err)
		}
		for _, row := range outcomes {
			fmt.Fprintf(out, "  Narrations %s: %d\n", row.Outcome, row.Count)
		}
		fmt.Fprintln(out)
	}

	if statsRoom == "" {
		return nil
	}

	recent, err := store.ListRecentTrends(ctx, statsRoom, statsRecent)
	if err != nil {
		return fmt.Errorf("list recent trends: %w", err)
	}

	fmt.Fprintf(out, "Latest in %s:\n", statsRoom)
	for _, t := range recent {
		fmt.Fprintf(out, "  %s  %-12s %s\n",
			t.ShownAt.Local().Format("2006-01-02 15:04:05"),
			t.Label,
			card.Truncate(t.Description, 60),
		)
	}
	return nil
}
