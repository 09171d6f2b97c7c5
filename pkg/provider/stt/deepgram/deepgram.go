// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// streaming WebSocket API. It implements the stt.Provider interface by
// streaming a whole recording and collecting the final results.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/provider/stt"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"

	// chunkBytes is 100 ms of 16 kHz mono linear16 audio.
	chunkBytes = 3200
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithEndpoint overrides the listen endpoint. Accepts ws, wss, http or https
// URLs.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider implements stt.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe streams clip to Deepgram as 16 kHz mono linear16, asks the
// server to flush with a CloseStream message and joins every final result.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, cfg stt.Config) (stt.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: %w", err)
	}
	if clip.Empty() {
		return stt.Transcript{}, stt.ErrEmptyAudio
	}
	mono, err := audio.Convert(clip, audio.STTFormat)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: %w", err)
	}

	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.apiKey)

	start := time.Now()
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.CloseNow()

	var col collector
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return readResults(gctx, conn, &col) })
	g.Go(func() error { return writeAudio(gctx, conn, mono.PCM) })
	if err := g.Wait(); err != nil {
		return stt.Transcript{}, err
	}
	conn.Close(websocket.StatusNormalClosure, "done")

	t := col.transcript()
	t.Latency = time.Since(start)
	slog.Debug("deepgram: transcription complete", "finals", len(col.texts), "latency", t.Latency)
	return t, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given config.
func (p *Provider) buildURL(cfg stt.Config) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "false")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(audio.STTFormat.SampleRate))
	q.Set("channels", strconv.Itoa(audio.STTFormat.Channels))

	for _, kw := range cfg.Keywords {
		if kw.Keyword == "" {
			continue
		}
		// Deepgram keyword format: word:boost (e.g., "Rudolph:5")
		val := kw.Keyword
		if kw.Boost != 0 {
			val = fmt.Sprintf("%s:%g", kw.Keyword, kw.Boost)
		}
		q.Add("keywords", val)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// writeAudio sends pcm in chunkBytes pieces followed by CloseStream.
func writeAudio(ctx context.Context, conn *websocket.Conn, pcm []byte) error {
	for off := 0; off < len(pcm); off += chunkBytes {
		end := min(off+chunkBytes, len(pcm))
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[off:end]); err != nil {
			return fmt.Errorf("deepgram: send audio: %w", err)
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("deepgram: send close stream: %w", err)
	}
	return nil
}

// readResults collects final results until the server closes the socket.
func readResults(ctx context.Context, conn *websocket.Conn, col *collector) error {
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("deepgram: read: %w", err)
		}
		t, ok := parseDeepgramResponse(msg)
		if !ok || !t.final {
			continue
		}
		col.add(t)
	}
}

// ---- results ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
			Words      []struct {
				Word       string  `json:"word"`
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// result is one parsed Results event.
type result struct {
	text       string
	final      bool
	confidence float64
	words      []stt.WordDetail
}

// collector accumulates final results.
type collector struct {
	mu         sync.Mutex
	texts      []string
	words      []stt.WordDetail
	confidence float64
}

func (c *collector) add(r result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, r.text)
	c.words = append(c.words, r.words...)
	c.confidence += r.confidence
}

// transcript joins the collected results. Confidence is the mean over
// finals.
func (c *collector) transcript() stt.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := stt.Transcript{
		Text:     stt.JoinSegments(c.texts),
		Words:    c.words,
		Provider: "deepgram",
	}
	if n := len(c.texts); n > 0 {
		t.Confidence = c.confidence / float64(n)
	}
	return t
}

// parseDeepgramResponse parses a raw Deepgram WebSocket message.
// Returns (result, true) on success, or (zero, false) if the message should be ignored.
func parseDeepgramResponse(data []byte) (result, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return result{}, false
	}
	if resp.Type != "Results" {
		return result{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return result{}, false
	}

	alt := resp.Channel.Alternatives[0]
	words := make([]stt.WordDetail, 0, len(alt.Words))
	for _, w := range alt.Words {
		words = append(words, stt.WordDetail{
			Word:       w.Word,
			Start:      time.Duration(w.Start * float64(time.Second)),
			End:        time.Duration(w.End * float64(time.Second)),
			Confidence: w.Confidence,
		})
	}

	return result{
		text:       alt.Transcript,
		final:      resp.IsFinal,
		confidence: alt.Confidence,
		words:      words,
	}, true
}
