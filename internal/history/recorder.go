// Package history records what a room was shown and how its narrations ended.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abdulachik/trendcard/internal/cycle"
	"github.com/abdulachik/trendcard/internal/db"
	"github.com/abdulachik/trendcard/internal/trend"
	"github.com/abdulachik/trendcard/internal/voice"
)

// writeTimeout bounds each history write so a slow disk cannot stall the cycle.
const writeTimeout = 2 * time.Second

// Recorder is a cycle.Observer that writes trends and narration outcomes to
// the store. Write failures are logged and dropped.
type Recorder struct {
	store *db.Store
	room  string
	clock clockwork.Clock

	lastTrendID int64
	lastHash    string
}

var _ cycle.Observer = (*Recorder)(nil)

// RecorderConfig holds recorder configuration.
type RecorderConfig struct {
	Store *db.Store
	Room  string
	Clock clockwork.Clock
}

// NewRecorder creates a recorder for one room.
func NewRecorder(cfg RecorderConfig) *Recorder {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{store: cfg.Store, room: cfg.Room, clock: clock}
}

// StatusChanged is not recorded.
func (r *Recorder) StatusChanged(cycle.Status) {}

// TrendChanged stores the newly displayed trend.
func (r *Recorder) TrendChanged(rec trend.Record, label cycle.Label) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	hash := HashDescription(rec.Description)
	id, err := r.store.CreateTrend(ctx, db.CreateTrendParams{
		Room:            r.room,
		DescriptionHash: hash,
		Brand:           rec.Brand,
		Product:         rec.Product,
		Persona:         sql.NullString{String: rec.Persona, Valid: rec.Persona != ""},
		Description:     rec.Description,
		Image:           sql.NullString{String: rec.Image, Valid: rec.Image != ""},
		Hashtags:        strings.Join(rec.Hashtags, " "),
		Label:           label.String(),
		ShownAt:         r.clock.Now(),
	})
	if err != nil {
		slog.Warn("failed to record trend", "room", r.room, "error", err)
		r.lastTrendID = 0
		return
	}

	r.lastTrendID = id
	r.lastHash = hash
}

// TrendRefreshed is not recorded; only newly displayed trends are.
func (r *Recorder) TrendRefreshed(trend.Record) {}

// NarrationFinished stores the terminal event of a narration.
func (r *Recorder) NarrationFinished(rec trend.Record, ev voice.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	params := db.CreateNarrationParams{
		Room:       r.room,
		Outcome:    ev.Kind.String(),
		FinishedAt: ev.At,
	}
	if params.FinishedAt.IsZero() {
		params.FinishedAt = r.clock.Now()
	}
	if r.lastTrendID != 0 && r.lastHash == HashDescription(rec.Description) {
		params.TrendID = sql.NullInt64{Int64: r.lastTrendID, Valid: true}
	}
	if ev.Err != nil {
		params.Error = sql.NullString{String: ev.Err.Error(), Valid: true}
	}

	if _, err := r.store.CreateNarration(ctx, params); err != nil {
		slog.Warn("failed to record narration", "room", r.room, "error", err)
	}
}

// HashDescription returns the stored form of a dedup key.
func HashDescription(description string) string {
	hash := sha256.Sum256([]byte(description))
	return hex.EncodeToString(hash[:16])
}
