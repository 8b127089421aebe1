package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/abdulachik/trendcard/internal/config"
	"github.com/abdulachik/trendcard/internal/cycle"
	"github.com/abdulachik/trendcard/internal/db"
	"github.com/abdulachik/trendcard/internal/history"
	"github.com/abdulachik/trendcard/internal/observe"
	"github.com/abdulachik/trendcard/internal/trend"
	"github.com/abdulachik/trendcard/internal/voice"
)

// Version is reported in the metrics resource.
var Version = "dev"

// App is the main application container holding all dependencies.
type App struct {
	Config    *config.Config
	Fetcher   trend.Fetcher
	Narrator  *voice.Narrator
	Announcer voice.Announcer
	Store     *db.Store         // nil when history is disabled
	Provider  *observe.Provider // nil when METRICS_ADDR is empty
	Metrics   *observe.Metrics
	Health    *Health
	Clock     clockwork.Clock
}

// New creates a new application instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Clock:  clockwork.NewRealClock(),
	}
	a.Health = NewHealth(a.Clock)

	a.Fetcher = healthFetcher{
		Fetcher: trend.NewHTTPFetcher(trend.HTTPConfig{
			BaseURL: cfg.BackendURL,
			Timeout: cfg.HTTPTimeout,
		}),
		health: a.Health,
	}

	sink, err := NewSink(cfg.PlayerCommand)
	if err != nil {
		return nil, err
	}
	a.Narrator = voice.NewNarrator(voice.NewHTTPSource(cfg.BackendURL, voice.NewStreamClient(cfg.HTTPTimeout)), sink)
	a.Announcer = voice.NewHTTPAnnouncer(cfg.BackendURL, cfg.HTTPTimeout)

	if cfg.MetricsAddr != "" {
		a.Provider, err = observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: Version})
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		a.Metrics, err = observe.NewMetrics(a.Provider.MeterProvider())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create metrics: %w", err)
		}
	} else {
		a.Metrics = observe.DefaultMetrics()
	}

	if cfg.HistoryEnabled() {
		a.Store, err = db.NewStore(ctx, cfg.DatabasePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := a.Store.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return a, nil
}

// NewSink returns a player for command, or a discarding sink when it is empty.
func NewSink(command string) (voice.Sink, error) {
	if command == "" {
		return voice.DiscardSink{}, nil
	}
	sink, err := voice.NewCommandSink(command)
	if err != nil {
		return nil, fmt.Errorf("player command: %w", err)
	}
	return sink, nil
}

// Controller builds a cycle controller for room. The extra observers receive
// notifications after the history and health observers.
func (a *App) Controller(room string, observers ...cycle.Observer) *cycle.Controller {
	all := cycle.Observers{healthObserver{health: a.Health}}
	if a.Store != nil {
		all = append(all, history.NewRecorder(history.RecorderConfig{
			Store: a.Store,
			Room:  room,
			Clock: a.Clock,
		}))
	}
	all = append(all, observers...)

	return cycle.New(cycle.Config{
		Room:            room,
		Fetcher:         a.Fetcher,
		Narrator:        a.Narrator,
		Announcer:       a.Announcer,
		Observer:        all,
		Metrics:         a.Metrics,
		Clock:           a.Clock,
		RetryDelay:      a.Config.RetryDelay,
		SkipDelay:       a.Config.SkipDelay,
		NextDelay:       a.Config.NextDelay,
		AnnounceTimeout: a.Config.AnnounceTimeout,
	})
}

// Handler serves /healthz and, when metrics are enabled, /metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", a.Health)
	if a.Provider != nil {
		mux.Handle("GET /metrics", a.Provider.Handler())
	}
	return mux
}

// Close closes all resources.
func (a *App) Close() error {
	var errs []error
	if a.Provider != nil {
		errs = append(errs, a.Provider.Shutdown(context.Background()))
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
