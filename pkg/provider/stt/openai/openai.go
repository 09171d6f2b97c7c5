// Package openai provides a batch STT provider backed by the OpenAI audio
// transcription API. Any server exposing the same /audio/transcriptions
// endpoint (for example a local faster-whisper gateway) works through
// [WithBaseURL].
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Provider implements the stt.Provider interface.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  oai.AudioModel
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI STT Provider.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai stt: apiKey must not be empty")
	}
	m := oai.AudioModel(model)
	if model == "" {
		m = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: m}, nil
}

// Transcribe implements stt.Provider. The clip is uploaded as 16 kHz mono
// WAV. Keywords become the prompt.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, cfg stt.Config) (stt.Transcript, error) {
	if clip.Empty() {
		return stt.Transcript{}, stt.ErrEmptyAudio
	}
	mono, err := audio.Convert(clip, audio.STTFormat)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai stt: %w", err)
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(audio.EncodeWAV(mono)), "audio.wav", "audio/wav"),
		Model: p.model,
	}
	if lang := cfg.Language; lang != "" {
		base, _, _ := strings.Cut(lang, "-")
		params.Language = param.NewOpt(strings.ToLower(base))
	}
	if prompt := keywordPrompt(cfg.Keywords); prompt != "" {
		params.Prompt = param.NewOpt(prompt)
	}

	start := time.Now()
	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("openai stt: transcribe: %w", err)
	}
	return stt.Transcript{
		Text:     stt.JoinSegments(strings.Split(resp.Text, "\n")),
		Provider: "openai",
		Latency:  time.Since(start),
	}, nil
}

func keywordPrompt(keywords []stt.KeywordBoost) string {
	var words []string
	for _, k := range keywords {
		if k.Keyword != "" {
			words = append(words, k.Keyword)
		}
	}
	return strings.Join(words, ", ")
}
