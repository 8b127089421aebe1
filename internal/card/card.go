// Package card renders trend cards and status lines for a terminal display.
package card

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/abdulachik/trendcard/internal/cycle"
	"github.com/abdulachik/trendcard/internal/trend"
	"github.com/abdulachik/trendcard/internal/voice"
)

// DescriptionMaxLength is the rune limit for the description on a card.
const DescriptionMaxLength = 280

// Render formats a trend as a card headed by its label.
func Render(rec trend.Record, label cycle.Label) string {
	var b strings.Builder

	if text := label.String(); text != "" {
		fmt.Fprintf(&b, "[%s]\n", text)
	}

	if title := Title(rec); title != "" {
		b.WriteString(title)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\"%s\"\n", Truncate(strings.TrimSpace(rec.Description), DescriptionMaxLength))

	if tags := FormatHashtags(rec.Hashtags); tags != "" {
		b.WriteString(tags)
		b.WriteString("\n")
	}
	if rec.Image != "" {
		fmt.Fprintf(&b, "image: %s\n", rec.Image)
	}

	return b.String()
}

// Title joins brand and product, with the persona in parentheses.
func Title(rec trend.Record) string {
	var parts []string
	if rec.Brand != "" {
		parts = append(parts, rec.Brand)
	}
	if rec.Product != "" {
		parts = append(parts, rec.Product)
	}
	title := strings.Join(parts, " / ")

	if rec.Persona != "" {
		if title == "" {
			return fmt.Sprintf("(%s)", rec.Persona)
		}
		title = fmt.Sprintf("%s (%s)", title, rec.Persona)
	}
	return title
}

// FormatHashtags prefixes each tag with "#" and joins them with spaces.
func FormatHashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimLeft(tag, "#")
		if tag == "" {
			continue
		}
		out = append(out, "#"+tag)
	}
	return strings.Join(out, " ")
}

// Truncate shortens text to at most maxLen runes, cutting at a word boundary
// when one is close and appending "...".
func Truncate(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string([]rune(text)[:maxLen])
	}

	available := maxLen - 3
	truncated := string([]rune(text)[:available])

	// Only use the word boundary if it is not too far back.
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}

	return strings.TrimRight(truncated, " .,;:!?") + "..."
}

// Printer is a cycle.Observer that writes status lines and cards to w.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	shown string // body of the card on screen, without its label
}

var _ cycle.Observer = (*Printer)(nil)

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) StatusChanged(status cycle.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "-- %s\n", status)
}

func (p *Printer) TrendChanged(rec trend.Record, label cycle.Label) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = Render(rec, 0)
	io.WriteString(p.w, "\n"+Render(rec, label)+"\n")
}

// TrendRefreshed reprints the card only when a displayed field changed.
func (p *Printer) TrendRefreshed(rec trend.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()

	body := Render(rec, 0)
	if body == p.shown {
		return
	}
	p.shown = body
	io.WriteString(p.w, "\n[Updated]\n"+body+"\n")
}

func (p *Printer) NarrationFinished(_ trend.Record, ev voice.Event) {
	if ev.Kind != voice.Errored {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "-- narration failed: %v\n", ev.Err)
}
