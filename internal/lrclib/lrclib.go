// Package lrclib looks up time-synced lyrics on lrclib.net.
//
// The search endpoint returns every recording matching an artist and title;
// [Client.SyncedLyrics] keeps the ones that carry synced (LRC) lyrics and
// picks the one whose duration is closest to the local audio file, so a
// live or extended version does not get the studio timings.
//
// Calls go through a circuit breaker: when lrclib.net is down, catalog setup
// degrades to placeholder lyrics quickly instead of waiting on every song.
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/internal/resilience"
)

const (
	// DefaultBaseURL is the public lrclib instance.
	DefaultBaseURL = "https://lrclib.net"

	defaultTimeout = 10 * time.Second
	userAgent      = "singalong (https://github.com/MrWong99/singalong)"
	maxErrorBody   = 512
)

// ErrNoSyncedLyrics is returned when no search result carries synced lyrics.
var ErrNoSyncedLyrics = errors.New("lrclib: no synced lyrics found")

// Track is one lrclib.net search result.
type Track struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// StatusError is returned when lrclib.net answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lrclib: server returned HTTP %d: %s", e.Code, e.Body)
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The default times out after 10s.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = &http.Client{Timeout: d}
		}
	}
}

// WithBreaker overrides the circuit breaker tuning. Name, IsFailure and
// OnStateChange are always set by the client.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(cl *Client) { cl.breakerCfg = cfg }
}

// WithMetrics sets the metrics recorder. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// Client queries the lrclib.net API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	breakerCfg resilience.CircuitBreakerConfig
	breaker    *resilience.CircuitBreaker
	metrics    *observe.Metrics
}

// New creates a Client for baseURL, or [DefaultBaseURL] when empty.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: defaultTimeout},
		breakerCfg: resilience.CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Minute, HalfOpenMax: 1},
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}

	cfg := c.breakerCfg
	cfg.Name = "lrclib"
	cfg.IsFailure = isFailure
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		c.metrics.RecordBreakerTransition(context.Background(), name, to.String())
	}
	c.breaker = resilience.NewCircuitBreaker(cfg)
	return c
}

// isFailure counts transport errors and 5xx answers against the breaker.
// Client errors and cancellations say nothing about lrclib's health.
func isFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return true
}

// Search returns every track matching artist and title.
func (c *Client) Search(ctx context.Context, artist, title string) ([]Track, error) {
	var tracks []Track
	err := c.breaker.Execute(func() error {
		var err error
		tracks, err = c.search(ctx, artist, title)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *Client) search(ctx context.Context, artist, title string) ([]Track, error) {
	q := url.Values{}
	q.Set("track_name", title)
	if artist != "" {
		q.Set("artist_name", artist)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("lrclib: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lrclib: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var tracks []Track
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, fmt.Errorf("lrclib: parse JSON response: %w", err)
	}
	return tracks, nil
}

// SyncedLyrics returns the synced-lyrics track closest in length to
// duration seconds. It returns [ErrNoSyncedLyrics] when no result has synced
// lyrics.
func (c *Client) SyncedLyrics(ctx context.Context, artist, title string, duration float64) (Track, error) {
	tracks, err := c.Search(ctx, artist, title)
	if err != nil {
		c.metrics.RecordLyricsLookup(ctx, observe.StatusError)
		return Track{}, err
	}
	best, ok := BestMatch(tracks, duration)
	if !ok {
		c.metrics.RecordLyricsLookup(ctx, observe.StatusNotFound)
		return Track{}, ErrNoSyncedLyrics
	}
	c.metrics.RecordLyricsLookup(ctx, observe.StatusOK)
	slog.Debug("lrclib: synced lyrics found",
		"artist", artist, "title", title,
		"track_id", best.ID, "duration_diff", math.Abs(best.Duration-duration))
	return best, nil
}

// BestMatch picks the track with synced lyrics whose duration is closest to
// duration. The earliest result wins ties.
func BestMatch(tracks []Track, duration float64) (Track, bool) {
	var (
		best     Track
		bestDiff = math.Inf(1)
		found    bool
	)
	for _, t := range tracks {
		if t.SyncedLyrics == "" {
			continue
		}
		if diff := math.Abs(t.Duration - duration); diff < bestDiff {
			best, bestDiff, found = t, diff, true
		}
	}
	return best, found
}

// BreakerState reports the state of the client's circuit breaker.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}
