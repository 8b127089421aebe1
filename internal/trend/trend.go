package trend

import (
	"context"
	"errors"
	"strings"
)

// ErrNotReady is wrapped by every error a Fetcher returns. The backend having
// no content yet and a failed request are reported the same way.
var ErrNotReady = errors.New("trend not ready")

// Record is a single trend card as served by the backend.
type Record struct {
	Brand       string   `json:"brand"`
	Product     string   `json:"product"`
	Persona     string   `json:"persona,omitempty"`
	Description string   `json:"description"`
	Image       string   `json:"image,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
}

// Renderable reports whether the record carries narration text.
func (r Record) Renderable() bool {
	return strings.TrimSpace(r.Description) != ""
}

// Key returns the dedup key used to detect changed content.
func (r Record) Key() string {
	return r.Description
}

// Fetcher is the interface for trend sources.
type Fetcher interface {
	// FetchTrend retrieves the current trend for a room. Any failure,
	// including a payload without a description, wraps ErrNotReady.
	FetchTrend(ctx context.Context, room string) (Record, error)
}

// IsNotReady reports whether err is a not-ready outcome.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}
