// Package voice plays narrated trend descriptions. A Narrator resolves text to
// an audio stream through a Source and hands it to a Sink; each playback is a
// Session that reports its lifecycle as Events on a single channel.
package voice

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNoStream is returned by a Source that could not resolve text to audio.
	ErrNoStream = errors.New("no voice stream")

	// ErrEmptyStream is reported when a stream resolved but carried no audio.
	ErrEmptyStream = errors.New("empty voice stream")
)

// EventKind identifies a session lifecycle event.
type EventKind int

const (
	// Started fires once audio starts playing. It is not terminal.
	Started EventKind = iota + 1
	// Ended is the terminal event of a playback that completed normally.
	Ended
	// Errored is the terminal event of a playback that failed.
	Errored
)

// String returns the event name used in logs and metric attributes.
func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Ended:
		return "ended"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Event is a single lifecycle notification of a Session.
type Event struct {
	Kind EventKind
	Err  error // set for Errored
	At   time.Time
}

// Terminal reports whether no further events follow e.
func (e Event) Terminal() bool {
	return e.Kind == Ended || e.Kind == Errored
}

// Source resolves narration text to a playable audio stream.
type Source interface {
	Open(ctx context.Context, text string) (io.ReadCloser, error)
}

// Sink plays an audio stream to completion. Play must return promptly once
// ctx is cancelled.
type Sink interface {
	Play(ctx context.Context, audio io.Reader) error
}

// Announcer tells the backend that narration has begun for a room.
type Announcer interface {
	Announce(ctx context.Context, room string) error
}
