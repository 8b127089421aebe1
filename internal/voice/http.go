package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	voicePath      = "/voice"
	startVoicePath = "/startVoice"

	defaultAnnounceTimeout = 5 * time.Second
	defaultHeaderTimeout   = 10 * time.Second
)

// HTTPSource streams narration audio from the backend's /voice endpoint.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
}

// NewStreamClient returns a client for audio streams. Only the wait for
// response headers is bounded; the body may stream for as long as it plays.
func NewStreamClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = defaultHeaderTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// NewHTTPSource creates a source for baseURL. A nil client means
// NewStreamClient with the default header timeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = NewStreamClient(0)
	}
	return &HTTPSource{
		httpClient: client,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Open requests the audio stream for text.
func (h *HTTPSource) Open(ctx context.Context, text string) (io.ReadCloser, error) {
	endpoint := h.baseURL + voicePath + "?" + url.Values{"text": {text}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: voice endpoint returned status %d", ErrNoStream, resp.StatusCode)
	}

	return resp.Body, nil
}

// HTTPAnnouncer notifies the backend through /startVoice.
type HTTPAnnouncer struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPAnnouncer creates an announcer for baseURL.
func NewHTTPAnnouncer(baseURL string, timeout time.Duration) *HTTPAnnouncer {
	if timeout <= 0 {
		timeout = defaultAnnounceTimeout
	}
	return &HTTPAnnouncer{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Announce sends the notification. The response body is discarded; the
// returned error exists only for logging.
func (h *HTTPAnnouncer) Announce(ctx context.Context, room string) error {
	endpoint := h.baseURL + startVoicePath + "?" + url.Values{"room": {room}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("startVoice returned status %d", resp.StatusCode)
	}

	slog.Debug("announced voice start", "room", room)
	return nil
}
