package card

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/abdulachik/trendcard/internal/cycle"
	"github.com/abdulachik/trendcard/internal/trend"
	"github.com/abdulachik/trendcard/internal/voice"
)

func TestRender(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		rec := trend.Record{
			Brand:       "Acme",
			Product:     "Rocket Skates",
			Persona:     "Coyote",
			Description: "  Fastest skates in the desert.  ",
			Image:       "https://example.com/skates.png",
			Hashtags:    []string{"#speed", "desert"},
		}

		expected := "[Now trending]\n" +
			"Acme / Rocket Skates (Coyote)\n" +
			"\"Fastest skates in the desert.\"\n" +
			"#speed #desert\n" +
			"image: https://example.com/skates.png\n"
		assert.Equal(t, expected, Render(rec, cycle.LabelFirst))
	})

	t.Run("description only", func(t *testing.T) {
		rec := trend.Record{Description: "Just text."}
		assert.Equal(t, "[Just changed]\n\"Just text.\"\n", Render(rec, cycle.LabelChanged))
	})
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		rec  trend.Record
		want string
	}{
		{"brand and product", trend.Record{Brand: "Acme", Product: "Anvil"}, "Acme / Anvil"},
		{"brand only", trend.Record{Brand: "Acme"}, "Acme"},
		{"persona only", trend.Record{Persona: "Coyote"}, "(Coyote)"},
		{"empty", trend.Record{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.rec))
		})
	}
}

func TestFormatHashtags(t *testing.T) {
	assert.Equal(t, "#a #b #c", FormatHashtags([]string{"a", "#b", "##c"}))
	assert.Equal(t, "#x", FormatHashtags([]string{"", "  ", "#", "x"}))
	assert.Equal(t, "", FormatHashtags(nil))
}

func TestTruncate(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "Short.", Truncate("Short.", 100))
	})

	t.Run("long text truncated at word boundary", func(t *testing.T) {
		text := "This is a very long description that needs to be truncated for display."
		result := Truncate(text, 30)

		assert.LessOrEqual(t, utf8.RuneCountInString(result), 30)
		assert.True(t, strings.HasSuffix(result, "..."))
		assert.Equal(t, "This is a very long...", result)
	})

	t.Run("counts runes", func(t *testing.T) {
		assert.Equal(t, "日本語", Truncate("日本語", 3))
		assert.Equal(t, "日本語日...", Truncate("日本語日本語日本", 7))
	})

	t.Run("tiny limit", func(t *testing.T) {
		assert.Equal(t, "ab", Truncate("abcdef", 2))
	})
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.StatusChanged(cycle.StatusNarrating)
	p.TrendChanged(trend.Record{Description: "hello"}, cycle.LabelFirst)
	p.NarrationFinished(trend.Record{}, voice.Event{Kind: voice.Ended})
	p.NarrationFinished(trend.Record{}, voice.Event{Kind: voice.Errored, Err: errors.New("boom")})

	out := buf.String()
	assert.Contains(t, out, "-- Narrating\n")
	assert.Contains(t, out, "[Now trending]\n\"hello\"\n")
	assert.Contains(t, out, "-- narration failed: boom\n")
	assert.Equal(t, 1, strings.Count(out, "narration failed"))
}

func TestPrinter_TrendRefreshed(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	rec := trend.Record{Description: "hello", Image: "old.png"}
	p.TrendChanged(rec, cycle.LabelFirst)

	t.Run("unchanged card is not reprinted", func(t *testing.T) {
		before := buf.Len()
		p.TrendRefreshed(rec)
		assert.Equal(t, before, buf.Len())
	})

	t.Run("changed field reprints the card", func(t *testing.T) {
		rec.Image = "new.png"
		p.TrendRefreshed(rec)

		out := buf.String()
		assert.Contains(t, out, "[Updated]\n\"hello\"\nimage: new.png\n")
		assert.Equal(t, 1, strings.Count(out, "[Now trending]"))
	})
}
