package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// firstChunkSize is the read size used to detect that a stream carries audio.
const firstChunkSize = 32 * 1024

// maxEmptyReads matches the limit bufio applies to zero-byte reads.
const maxEmptyReads = 100

// Narrator starts playback sessions.
type Narrator struct {
	source Source
	sink   Sink
	nextID atomic.Uint64
}

// NewNarrator creates a narrator that reads audio from source and plays it on sink.
func NewNarrator(source Source, sink Sink) *Narrator {
	return &Narrator{source: source, sink: sink}
}

// Session is one playback of one narration text. Events delivers an
// optional Started followed by exactly one terminal event, then closes. A
// session stopped before it finishes closes Events without a terminal event.
type Session struct {
	ID   uint64
	Text string

	events   chan Event
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start begins playing text asynchronously. Callers must ensure text is
// non-empty and that any previous session has been stopped.
func (n *Narrator) Start(ctx context.Context, text string) *Session {
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		ID:     n.nextID.Add(1),
		Text:   text,
		events: make(chan Event, 2),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.run(ctx, n.source, n.sink)
	return s
}

// Events returns the session's lifecycle channel.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the playback goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stop cancels playback and waits for the sink to release the audio device.
// It is safe to call more than once and after the session has finished.
func (s *Session) Stop() {
	s.stopOnce.Do(s.cancel)
	<-s.done
}

func (s *Session) run(ctx context.Context, source Source, sink Sink) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	err := s.play(ctx, source, sink)

	if ctx.Err() != nil {
		// Stopped; the owner already moved on.
		slog.Debug("voice session stopped", "session", s.ID)
		return
	}

	if err != nil {
		s.events <- Event{Kind: Errored, Err: err, At: time.Now()}
		return
	}
	s.events <- Event{Kind: Ended, At: time.Now()}
}

func (s *Session) play(ctx context.Context, source Source, sink Sink) error {
	stream, err := source.Open(ctx, s.Text)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if stream == nil {
		return ErrNoStream
	}
	defer stream.Close()

	first, err := readFirstChunk(ctx, stream)
	if err != nil {
		return err
	}

	s.events <- Event{Kind: Started, At: time.Now()}

	audio := io.MultiReader(bytes.NewReader(first), stream)
	if err := sink.Play(ctx, audio); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return nil
}

// readFirstChunk blocks until the stream yields audio bytes. A stream that
// keeps returning no data and no error fails with io.ErrNoProgress.
func readFirstChunk(ctx context.Context, stream io.Reader) ([]byte, error) {
	buf := make([]byte, firstChunkSize)
	for empty := 0; ; empty++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if empty >= maxEmptyReads {
			return nil, fmt.Errorf("read stream: %w", io.ErrNoProgress)
		}
		n, err := stream.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyStream
		}
		if err != nil {
			return nil, fmt.Errorf("read stream: %w", err)
		}
	}
}
