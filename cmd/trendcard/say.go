package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abdulachik/trendcard/internal/app"
	"github.com/abdulachik/trendcard/internal/config"
	"github.com/abdulachik/trendcard/internal/voice"
)

var sayCmd = &cobra.Command{
	Use:   "say [text]",
	Short: "Narrate text once",
	Long: `Stream the backend's voice for the given text through the player and
report how the narration ended.

Example:
  trendcard say "Rocket skates are back"`,
	Args: cobra.ExactArgs(1),
	RunE: runSay,
}

func init() {
	rootCmd.AddCommand(sayCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	sink, err := app.NewSink(cfg.PlayerCommand)
	if err != nil {
		return err
	}
	narrator := voice.NewNarrator(voice.NewHTTPSource(cfg.BackendURL, voice.NewStreamClient(cfg.HTTPTimeout)), sink)

	session := narrator.Start(ctx, args[0])
	defer session.Stop()

	out := cmd.OutOrStdout()
	for ev := range session.Events() {
		fmt.Fprintf(out, "%s\n", ev.Kind)
		if ev.Kind == voice.Errored {
			return fmt.Errorf("narration failed: %w", ev.Err)
		}
	}
	return ctx.Err()
}
