package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandSink pipes audio into an external player process on stdin, the
// way a desktop plays an MP3 with its default player.
type CommandSink struct {
	name string
	args []string
}

// NewCommandSink parses a command line such as
// "ffplay -nodisp -autoexit -loglevel quiet -".
func NewCommandSink(command string) (*CommandSink, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("player command is empty")
	}
	return &CommandSink{name: fields[0], args: fields[1:]}, nil
}

// Play runs the player until it exits. Cancelling ctx kills the process.
func (c *CommandSink) Play(ctx context.Context, audio io.Reader) error {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = audio

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("run %s: %w: %s", c.name, err, msg)
		}
		return fmt.Errorf("run %s: %w", c.name, err)
	}
	return nil
}

// DiscardSink consumes audio without playing it. Useful for headless runs.
type DiscardSink struct{}

// Play drains audio.
func (DiscardSink) Play(ctx context.Context, audio io.Reader) error {
	_, err := io.Copy(io.Discard, ctxReader{ctx: ctx, r: audio})
	return err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
