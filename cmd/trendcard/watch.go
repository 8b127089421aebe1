package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abdulachik/trendcard/internal/app"
	"github.com/abdulachik/trendcard/internal/card"
	"github.com/abdulachik/trendcard/internal/config"
)

var watchRoom string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the trend cycle for a room",
	Long: `Fetch the room's trend in a loop, print its card when it changes and
narrate the description. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRoom, "room", "", "room to watch (default $ROOM_ID)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if watchRoom != "" {
		cfg.RoomID = watchRoom
	}
	if err := cfg.ValidateForWatch(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl := a.Controller(cfg.RoomID, card.NewPrinter(cmd.OutOrStdout()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           a.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("shutting down...")
	return nil
}
