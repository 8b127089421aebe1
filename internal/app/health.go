package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abdulachik/trendcard/internal/cycle"
	"github.com/abdulachik/trendcard/internal/trend"
	"github.com/abdulachik/trendcard/internal/voice"
)

// Health components.
const (
	ComponentBackend = "backend"
	ComponentVoice   = "voice"
)

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy     bool      `json:"healthy"`
	LastCheck   time.Time `json:"last_check"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   error     `json:"-"`
	Message     string    `json:"message"`
}

// Health tracks the health of various components.
type Health struct {
	mu         sync.RWMutex
	clock      clockwork.Clock
	components map[string]*HealthStatus
}

// NewHealth creates a new health tracker.
func NewHealth(clock clockwork.Clock) *Health {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Health{
		clock:      clock,
		components: make(map[string]*HealthStatus),
	}
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(component, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.clock.Now()
	status := h.component(component)
	status.Healthy = true
	status.LastCheck = now
	status.LastSuccess = now
	status.LastError = nil
	status.Message = message
}

// SetUnhealthy marks a component as unhealthy.
func (h *Health) SetUnhealthy(component string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := h.component(component)
	status.Healthy = false
	status.LastCheck = h.clock.Now()
	status.LastError = err
	status.Message = "unknown error"
	if err != nil {
		status.Message = err.Error()
	}
}

func (h *Health) component(name string) *HealthStatus {
	if _, exists := h.components[name]; !exists {
		h.components[name] = &HealthStatus{}
	}
	return h.components[name]
}

// GetStatus returns a copy of a component's status, or nil if unknown.
func (h *Health) GetStatus(component string) *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, exists := h.components[component]; exists {
		cp := *status
		return &cp
	}
	return nil
}

// GetAllStatuses returns all component statuses.
func (h *Health) GetAllStatuses() map[string]*HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*HealthStatus, len(h.components))
	for name, status := range h.components {
		cp := *status
		result[name] = &cp
	}
	return result
}

// IsOverallHealthy returns true if all components are healthy.
func (h *Health) IsOverallHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.components {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// ServeHTTP writes the component statuses as JSON, with 503 when any
// component is unhealthy.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	body := struct {
		Healthy    bool                     `json:"healthy"`
		Components map[string]*HealthStatus `json:"components"`
	}{
		Healthy:    h.IsOverallHealthy(),
		Components: h.GetAllStatuses(),
	}

	w.Header().Set("Content-Type", "application/json")
	if !body.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("failed to write health response", "error", err)
	}
}

// healthFetcher marks the backend healthy or unhealthy after every fetch.
type healthFetcher struct {
	trend.Fetcher
	health *Health
}

func (f healthFetcher) FetchTrend(ctx context.Context, room string) (trend.Record, error) {
	rec, err := f.Fetcher.FetchTrend(ctx, room)
	if err != nil {
		// A cancelled fetch says nothing about the backend.
		if ctx.Err() == nil {
			f.health.SetUnhealthy(ComponentBackend, err)
		}
		return rec, err
	}
	f.health.SetHealthy(ComponentBackend, "trend ready")
	return rec, nil
}

// healthObserver marks the voice component from narration outcomes.
type healthObserver struct {
	health *Health
}

func (healthObserver) StatusChanged(cycle.Status)             {}
func (healthObserver) TrendChanged(trend.Record, cycle.Label) {}
func (healthObserver) TrendRefreshed(trend.Record)            {}

func (o healthObserver) NarrationFinished(_ trend.Record, ev voice.Event) {
	if ev.Kind == voice.Errored {
		o.health.SetUnhealthy(ComponentVoice, ev.Err)
		return
	}
	o.health.SetHealthy(ComponentVoice, "narration ended")
}
