// Package mock provides a test double for the stt.Provider interface.
//
// Set Transcript to control what Transcribe returns and Err to simulate a
// backend failure. Every call is recorded in Calls.
//
// Example:
//
//	p := &mock.Provider{Transcript: stt.Transcript{Text: "jingle bells"}}
//	t, _ := p.Transcribe(ctx, clip, stt.Config{})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/provider/stt"
)

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Clip is the clip passed to Transcribe.
	Clip audio.Clip
	// Cfg is the Config passed to Transcribe.
	Cfg stt.Config
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by Transcribe when Err is nil.
	Transcript stt.Transcript

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every call to Transcribe.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Transcript, Err. A cancelled
// context is reported before anything else.
func (p *Provider) Transcribe(ctx context.Context, clip audio.Clip, cfg stt.Config) (stt.Transcript, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TranscribeCall{Clip: clip, Cfg: cfg})
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}
	if p.Err != nil {
		return stt.Transcript{}, p.Err
	}
	return p.Transcript, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
