// Package stt defines the Provider interface for Speech-to-Text backends.
//
// A sing-along take is recorded by the browser and uploaded in one piece, so
// providers work in batch: one [audio.Clip] in, one [Transcript] out.
// Streaming backends (Deepgram) stream the clip internally and collect the
// final results before returning.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"

	"github.com/MrWong99/singalong/pkg/audio"
)

// ErrEmptyAudio is returned when a clip carries no samples.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Config carries recognition hints for one transcription.
type Config struct {
	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider use its default or auto-detect.
	Language string

	// Keywords are vocabulary hints. Providers without keyword support
	// ignore them.
	Keywords []KeywordBoost
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe recognizes the speech in clip. Providers convert the clip
	// to the format their backend expects. An empty clip returns
	// ErrEmptyAudio. A recording in which nothing was recognized is not an
	// error: the Transcript text is simply empty.
	Transcribe(ctx context.Context, clip audio.Clip, cfg Config) (Transcript, error)
}
