package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/provider/stt"
)

// TranscriberFallback implements [stt.Provider] with automatic failover
// across multiple STT backends. Each backend has its own circuit breaker.
type TranscriberFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*TranscriberFallback)(nil)

// NewTranscriberFallback creates a [TranscriberFallback] with primary as the
// preferred backend.
func NewTranscriberFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *TranscriberFallback {
	if cfg.CircuitBreaker.IsFailure == nil {
		cfg.CircuitBreaker.IsFailure = sttFailure
	}
	return &TranscriberFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// sttFailure does not hold empty uploads against a backend.
func sttFailure(err error) bool {
	return defaultIsFailure(err) && !errors.Is(err, stt.ErrEmptyAudio)
}

// AddFallback registers an additional STT backend as a fallback.
func (f *TranscriberFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// States reports the breaker state of every backend.
func (f *TranscriberFallback) States() map[string]State {
	return f.group.States()
}

// Transcribe runs the clip through the first healthy backend. An empty clip
// is rejected without consulting any backend. When the transcript does not
// name its backend, the entry name is filled in.
func (f *TranscriberFallback) Transcribe(ctx context.Context, clip audio.Clip, cfg stt.Config) (stt.Transcript, error) {
	if clip.Empty() {
		return stt.Transcript{}, stt.ErrEmptyAudio
	}
	t, name, err := ExecuteWithResult(f.group, func(p stt.Provider) (stt.Transcript, error) {
		return p.Transcribe(ctx, clip, cfg)
	})
	if err != nil {
		return stt.Transcript{}, err
	}
	if t.Provider == "" {
		t.Provider = name
	}
	return t, nil
}
