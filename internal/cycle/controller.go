// Package cycle runs the trend card loop for one room: fetch the current
// trend, narrate it when its description changed, and wait before fetching
// again. Each phase runs to completion and enqueues its successor, so the
// controller never has more than one fetch or playback in flight.
package cycle

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/abdulachik/trendcard/internal/observe"
	"github.com/abdulachik/trendcard/internal/trend"
	"github.com/abdulachik/trendcard/internal/voice"
)

const (
	DefaultRetryDelay      = 2 * time.Second
	DefaultSkipDelay       = 5 * time.Second
	DefaultNextDelay       = 1 * time.Second
	DefaultAnnounceTimeout = 5 * time.Second
)

// errSessionClosed is reported when a session closed without a terminal event.
var errSessionClosed = errors.New("voice session closed without a terminal event")

// Narrator starts voice playback sessions.
type Narrator interface {
	Start(ctx context.Context, text string) *voice.Session
}

// Config holds controller configuration.
type Config struct {
	Room      string
	Fetcher   trend.Fetcher
	Narrator  Narrator
	Announcer voice.Announcer // optional
	Observer  Observer        // optional
	Metrics   *observe.Metrics
	Clock     clockwork.Clock

	RetryDelay      time.Duration // wait after a not-ready fetch
	SkipDelay       time.Duration // wait after an unchanged trend
	NextDelay       time.Duration // wait after a narration finished
	AnnounceTimeout time.Duration
}

// task is a queued phase.
type task struct {
	state State
	delay time.Duration
	rec   trend.Record
}

// Controller drives the trend cycle for a single room. It is not safe for
// concurrent use: Run or Step must be called from one goroutine.
type Controller struct {
	room      string
	fetcher   trend.Fetcher
	narrator  Narrator
	announcer voice.Announcer
	observer  Observer
	metrics   *observe.Metrics
	clock     clockwork.Clock

	retryDelay      time.Duration
	skipDelay       time.Duration
	nextDelay       time.Duration
	announceTimeout time.Duration

	pending task

	current *trend.Record
	lastKey string // description of the last narrated trend, "" before the first
	status  Status
	active  *voice.Session

	announcing sync.WaitGroup
}

// New creates a controller. The first queued phase is Fetching.
func New(cfg Config) *Controller {
	c := &Controller{
		room:            cfg.Room,
		fetcher:         cfg.Fetcher,
		narrator:        cfg.Narrator,
		announcer:       cfg.Announcer,
		observer:        cfg.Observer,
		metrics:         cfg.Metrics,
		clock:           cfg.Clock,
		retryDelay:      orDefault(cfg.RetryDelay, DefaultRetryDelay),
		skipDelay:       orDefault(cfg.SkipDelay, DefaultSkipDelay),
		nextDelay:       orDefault(cfg.NextDelay, DefaultNextDelay),
		announceTimeout: orDefault(cfg.AnnounceTimeout, DefaultAnnounceTimeout),
		pending:         task{state: StateFetching},
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	return c
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Room returns the room this controller watches.
func (c *Controller) Room() string { return c.room }

// State returns the phase that runs next.
func (c *Controller) State() State { return c.pending.state }

// CurrentTrend returns the last displayed trend, or false before the first.
func (c *Controller) CurrentTrend() (trend.Record, bool) {
	if c.current == nil {
		return trend.Record{}, false
	}
	return *c.current, true
}

// LastDescriptionKey returns the description of the last narrated trend, or
// false if nothing has been narrated.
func (c *Controller) LastDescriptionKey() (string, bool) {
	return c.lastKey, c.lastKey != ""
}

// Run drives the cycle until ctx is cancelled. It returns ctx.Err().
func (c *Controller) Run(ctx context.Context) error {
	slog.Info("starting trend cycle",
		"room", c.room,
		"retry_delay", c.retryDelay,
		"skip_delay", c.skipDelay,
		"next_delay", c.nextDelay,
	)
	defer c.announcing.Wait()

	for {
		next := c.pending
		if next.state == StateStopped {
			return ctx.Err()
		}

		if next.delay > 0 {
			select {
			case <-ctx.Done():
				c.stop()
				return ctx.Err()
			case <-c.clock.After(next.delay):
			}
		}

		c.Step(ctx)
	}
}

// Step runs the queued phase without waiting for its delay and returns the
// phase queued after it together with the delay Run would wait before it.
// Once ctx is cancelled Step stops the cycle and always reports Stopped.
func (c *Controller) Step(ctx context.Context) (State, time.Duration) {
	t := c.pending
	if t.state == StateStopped {
		return StateStopped, 0
	}
	if ctx.Err() != nil {
		c.stop()
		return StateStopped, 0
	}

	slog.Debug("trend cycle phase", "room", c.room, "state", t.state)

	switch t.state {
	case StateFetching:
		c.fetch(ctx)
	case StateDeciding:
		c.decide(t.rec)
	case StateNarrating:
		c.narrate(ctx, t.rec)
	case StateSkipping:
		c.skip(t.rec)
	case StateWarmingUp:
		c.warmUp()
	}

	// In-flight work may finish after cancellation; its successor is dropped.
	if ctx.Err() != nil {
		c.stop()
	}

	return c.pending.state, c.pending.delay
}

func (c *Controller) enqueue(state State, delay time.Duration, rec trend.Record) {
	c.pending = task{state: state, delay: delay, rec: rec}
}

func (c *Controller) fetch(ctx context.Context) {
	rec, err := c.fetcher.FetchTrend(ctx, c.room)
	if err == nil && !rec.Renderable() {
		err = trend.ErrNotReady
	}
	if err != nil {
		c.metrics.Fetches.Add(ctx, 1, c.attrs(observe.OutcomeNotReady))
		slog.Debug("trend not ready", "room", c.room, "error", err)
		c.enqueue(StateWarmingUp, 0, trend.Record{})
		return
	}

	c.metrics.Fetches.Add(ctx, 1, c.attrs(observe.OutcomeReady))
	c.enqueue(StateDeciding, 0, rec)
}

func (c *Controller) decide(rec trend.Record) {
	if rec.Key() == c.lastKey {
		c.enqueue(StateSkipping, 0, rec)
		return
	}

	label := LabelChanged
	if c.current == nil {
		label = LabelFirst
	}

	c.current = &rec
	c.observer.TrendChanged(rec, label)
	slog.Info("trend changed", "room", c.room, "label", label, "brand", rec.Brand, "product", rec.Product)

	c.enqueue(StateNarrating, 0, rec)
}

func (c *Controller) narrate(ctx context.Context, rec trend.Record) {
	c.lastKey = rec.Key()
	c.setStatus(StatusNarrating)

	startedAt := c.clock.Now()
	session := c.replaceSession(ctx, rec.Description)

	ev, ok := c.await(ctx, session)
	c.releaseSession()
	if !ok {
		return
	}

	c.metrics.Narrations.Add(ctx, 1, c.attrs(ev.Kind.String()))
	c.metrics.NarrationDuration.Record(ctx, c.clock.Since(startedAt).Seconds(),
		metric.WithAttributes(attribute.String(observe.AttrRoom, c.room)))

	if ev.Kind == voice.Errored {
		slog.Warn("narration errored", "room", c.room, "session", session.ID, "error", ev.Err)
	} else {
		slog.Info("narration ended", "room", c.room, "session", session.ID)
	}

	c.observer.NarrationFinished(rec, ev)
	c.setStatus(StatusPreparingNext)
	c.enqueue(StateFetching, c.nextDelay, trend.Record{})
}

// await blocks until the session's terminal event. It reports false if ctx
// was cancelled first.
func (c *Controller) await(ctx context.Context, session *voice.Session) (voice.Event, bool) {
	for {
		select {
		case <-ctx.Done():
			return voice.Event{}, false
		case ev, ok := <-session.Events():
			if !ok {
				if ctx.Err() != nil {
					return voice.Event{}, false
				}
				return voice.Event{Kind: voice.Errored, Err: errSessionClosed, At: c.clock.Now()}, true
			}
			if ev.Kind == voice.Started {
				slog.Info("narration started", "room", c.room, "session", session.ID)
				c.announce(ctx)
				continue
			}
			return ev, true
		}
	}
}

// replaceSession stops the active session, if any, before starting a new one.
func (c *Controller) replaceSession(ctx context.Context, text string) *voice.Session {
	c.releaseSession()
	c.active = c.narrator.Start(ctx, text)
	c.metrics.ActiveSessions.Add(ctx, 1)
	return c.active
}

func (c *Controller) releaseSession() {
	if c.active == nil {
		return
	}
	c.active.Stop()
	c.active = nil
	c.metrics.ActiveSessions.Add(context.Background(), -1)
}

// announce notifies the backend that narration began. Failures are counted
// and otherwise ignored.
func (c *Controller) announce(ctx context.Context) {
	if c.announcer == nil {
		return
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.announceTimeout)
	c.announcing.Add(1)
	go func() {
		defer c.announcing.Done()
		defer cancel()

		if err := c.announcer.Announce(actx, c.room); err != nil {
			c.metrics.AnnounceFailures.Add(actx, 1,
				metric.WithAttributes(attribute.String(observe.AttrRoom, c.room)))
			slog.Debug("announce failed", "room", c.room, "error", err)
		}
	}()
}

func (c *Controller) skip(rec trend.Record) {
	c.current = &rec
	c.observer.TrendRefreshed(rec)
	c.metrics.Skips.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(observe.AttrRoom, c.room)))
	slog.Debug("trend unchanged, skipping narration", "room", c.room)

	c.enqueue(StateFetching, c.skipDelay, trend.Record{})
}

func (c *Controller) warmUp() {
	c.setStatus(StatusWarmingUp)
	c.enqueue(StateFetching, c.retryDelay, trend.Record{})
}

func (c *Controller) setStatus(status Status) {
	if c.status == status {
		return
	}
	c.status = status
	c.observer.StatusChanged(status)
}

func (c *Controller) stop() {
	if c.pending.state == StateStopped {
		return
	}
	c.releaseSession()
	c.pending = task{state: StateStopped}
	slog.Info("trend cycle stopped", "room", c.room)
}

func (c *Controller) attrs(outcome string) metric.AddOption {
	return metric.WithAttributes(
		attribute.String(observe.AttrRoom, c.room),
		attribute.String(observe.AttrOutcome, outcome),
	)
}
