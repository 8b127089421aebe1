package trend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	trendPath      = "/trend"
	defaultTimeout = 10 * time.Second

	// maxPayloadBytes caps how much of a trend response is read.
	maxPayloadBytes = 1 << 20
)

// HTTPFetcher fetches trends from the backend's /trend endpoint.
type HTTPFetcher struct {
	httpClient *http.Client
	baseURL    string
}

// HTTPConfig holds configuration for the HTTP fetcher.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// NewHTTPFetcher creates a new HTTP trend fetcher.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPFetcher{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// trendPayload mirrors the JSON body served by /trend.
type trendPayload struct {
	Brand       string          `json:"brand"`
	Product     string          `json:"product"`
	Persona     string          `json:"persona"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Hashtags    json.RawMessage `json:"hashtags"`
}

// FetchTrend retrieves the current trend for room. The fetcher never retries.
func (f *HTTPFetcher) FetchTrend(ctx context.Context, room string) (Record, error) {
	endpoint := f.baseURL + trendPath + "?" + url.Values{"room": {room}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Record{}, fmt.Errorf("%w: build request: %v", ErrNotReady, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Record{}, fmt.Errorf("%w: backend returned status %d", ErrNotReady, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return Record{}, fmt.Errorf("%w: read body: %v", ErrNotReady, err)
	}

	var payload trendPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Record{}, fmt.Errorf("%w: decode body: %v", ErrNotReady, err)
	}

	rec := Record{
		Brand:       payload.Brand,
		Product:     payload.Product,
		Persona:     payload.Persona,
		Description: payload.Description,
		Image:       payload.Image,
		Hashtags:    parseHashtags(payload.Hashtags),
	}
	if !rec.Renderable() {
		return Record{}, fmt.Errorf("%w: empty description", ErrNotReady)
	}

	slog.Debug("fetched trend", "room", room, "brand", rec.Brand, "product", rec.Product)
	return rec, nil
}

// parseHashtags accepts either a JSON array of strings or a single
// whitespace-separated string. Anything else yields no hashtags; hashtags are
// display-only and never make a trend unready.
func parseHashtags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compactTags(list)
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return compactTags(strings.Fields(joined))
	}

	return nil
}

func compactTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
