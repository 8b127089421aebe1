package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdulachik/trendcard/internal/card"
	"github.com/abdulachik/trendcard/internal/config"
	"github.com/abdulachik/trendcard/internal/cycle"
	"github.com/abdulachik/trendcard/internal/trend"
)

var fetchRoom string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and print a room's current trend once",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchRoom, "room", "", "room to fetch (default $ROOM_ID)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if fetchRoom != "" {
		cfg.RoomID = fetchRoom
	}
	if err := cfg.ValidateForWatch(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	fetcher := trend.NewHTTPFetcher(trend.HTTPConfig{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.HTTPTimeout,
	})

	rec, err := fetcher.FetchTrend(ctx, cfg.RoomID)
	if err == nil && !rec.Renderable() {
		err = trend.ErrNotReady
	}
	if err != nil {
		if trend.IsNotReady(err) {
			fmt.Fprintf(cmd.OutOrStdout(), "not ready: %v\n", err)
			return nil
		}
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), card.Render(rec, cycle.LabelFirst))
	return nil
}
