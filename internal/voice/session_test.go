package voice

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource serves fixed audio for any text.
type memSource struct {
	audio string
	err   error
}

func (m memSource) Open(ctx context.Context, text string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.audio)), nil
}

// stuckSource returns a stream whose reads report neither data nor error.
type stuckSource struct{}

func (stuckSource) Open(ctx context.Context, text string) (io.ReadCloser, error) {
	return io.NopCloser(emptyReader{}), nil
}

type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, nil }

// gateSink blocks each Play until released or cancelled and records the
// order in which plays begin and end.
type gateSink struct {
	mu      sync.Mutex
	log     []string
	release chan struct{}
	err     error
}

func newGateSink() *gateSink {
	return &gateSink{release: make(chan struct{})}
}

func (g *gateSink) Play(ctx context.Context, audio io.Reader) error {
	data, _ := io.ReadAll(audio)
	g.record("begin " + string(data))
	defer g.record("end " + string(data))

	select {
	case <-g.release:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateSink) record(entry string) {
	g.mu.Lock()
	g.log = append(g.log, entry)
	g.mu.Unlock()
}

func (g *gateSink) entries() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.log...)
}

func collectEvents(t *testing.T, s *Session) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for session events")
		}
	}
}

func TestSession_Ended(t *testing.T) {
	sink := newGateSink()
	close(sink.release)

	n := NewNarrator(memSource{audio: "mp3-bytes"}, sink)
	s := n.Start(context.Background(), "hello")

	events := collectEvents(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, Started, events[0].Kind)
	assert.False(t, events[0].Terminal())
	assert.Equal(t, Ended, events[1].Kind)
	assert.True(t, events[1].Terminal())
	assert.NoError(t, events[1].Err)
	assert.Equal(t, []string{"begin mp3-bytes", "end mp3-bytes"}, sink.entries())
}

func TestSession_Errored(t *testing.T) {
	t.Run("stream resolution fails", func(t *testing.T) {
		n := NewNarrator(memSource{err: ErrNoStream}, newGateSink())
		events := collectEvents(t, n.Start(context.Background(), "hello"))

		require.Len(t, events, 1)
		assert.Equal(t, Errored, events[0].Kind)
		assert.ErrorIs(t, events[0].Err, ErrNoStream)
	})

	t.Run("empty stream", func(t *testing.T) {
		n := NewNarrator(memSource{audio: ""}, newGateSink())
		events := collectEvents(t, n.Start(context.Background(), "hello"))

		require.Len(t, events, 1)
		assert.Equal(t, Errored, events[0].Kind)
		assert.ErrorIs(t, events[0].Err, ErrEmptyStream)
	})

	t.Run("stream that never yields data", func(t *testing.T) {
		n := NewNarrator(stuckSource{}, newGateSink())
		events := collectEvents(t, n.Start(context.Background(), "hello"))

		require.Len(t, events, 1)
		assert.Equal(t, Errored, events[0].Kind)
		assert.ErrorIs(t, events[0].Err, io.ErrNoProgress)
	})

	t.Run("sink fails after start", func(t *testing.T) {
		sink := newGateSink()
		sink.err = errors.New("decode error")
		close(sink.release)

		n := NewNarrator(memSource{audio: "a"}, sink)
		events := collectEvents(t, n.Start(context.Background(), "hello"))

		require.Len(t, events, 2)
		assert.Equal(t, Started, events[0].Kind)
		assert.Equal(t, Errored, events[1].Kind)
		assert.ErrorContains(t, events[1].Err, "decode error")
	})
}

func TestSession_Stop(t *testing.T) {
	t.Run("stop closes events without terminal event", func(t *testing.T) {
		sink := newGateSink()
		n := NewNarrator(memSource{audio: "a"}, sink)
		s := n.Start(context.Background(), "hello")

		ev := <-s.Events()
		assert.Equal(t, Started, ev.Kind)

		s.Stop()

		_, ok := <-s.Events()
		assert.False(t, ok)
		assert.Equal(t, []string{"begin a", "end a"}, sink.entries())
	})

	t.Run("stop is idempotent after finish", func(t *testing.T) {
		sink := newGateSink()
		close(sink.release)
		s := NewNarrator(memSource{audio: "a"}, sink).Start(context.Background(), "x")
		collectEvents(t, s)

		s.Stop()
		s.Stop()
		<-s.Done()
	})

	t.Run("stopped session releases sink before replacement plays", func(t *testing.T) {
		sink := newGateSink()
		first := NewNarrator(memSource{audio: "first"}, sink).Start(context.Background(), "one")
		require.Equal(t, Started, (<-first.Events()).Kind)

		first.Stop()
		second := NewNarrator(memSource{audio: "second"}, sink).Start(context.Background(), "two")
		require.Equal(t, Started, (<-second.Events()).Kind)
		second.Stop()

		assert.Equal(t, []string{"begin first", "end first", "begin second", "end second"}, sink.entries())
	})
}

func TestNarrator_SessionIDs(t *testing.T) {
	sink := newGateSink()
	close(sink.release)
	n := NewNarrator(memSource{audio: "a"}, sink)

	a := n.Start(context.Background(), "a")
	b := n.Start(context.Background(), "b")
	defer a.Stop()
	defer b.Stop()

	assert.Equal(t, uint64(1), a.ID)
	assert.Equal(t, uint64(2), b.ID)
	assert.Equal(t, "b", b.Text)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "started", Started.String())
	assert.Equal(t, "ended", Ended.String())
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
