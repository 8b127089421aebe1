package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abdulachik/trendcard/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "trendcard",
	Short: "Display and narrate the trending card for a room",
	Long: `Trendcard polls a backend for the current trend of a room, shows it as a
card and narrates its description whenever it changes.`,
	Version:      app.Version,
	SilenceUsage: true,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
