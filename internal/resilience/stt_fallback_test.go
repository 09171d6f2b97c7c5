package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/provider/stt"
	sttmock "github.com/MrWong99/singalong/pkg/provider/stt/mock"
)

var testClip = audio.Clip{PCM: make([]byte, 320), Format: audio.STTFormat}

func TestTranscriberFallback_PrimarySuccess(t *testing.T) {
	primary := &sttmock.Provider{Transcript: stt.Transcript{Text: "feliz navidad"}}
	secondary := &sttmock.Provider{}

	fb := NewTranscriberFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("deepgram", secondary)

	got, err := fb.Transcribe(context.Background(), testClip, stt.Config{Language: "es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "feliz navidad" {
		t.Errorf("text = %q", got.Text)
	}
	if got.Provider != "whisper" {
		t.Errorf("provider = %q, want whisper filled in from entry name", got.Provider)
	}
	if primary.CallCount() != 1 {
		t.Fatalf("primary called %d times, want 1", primary.CallCount())
	}
	if primary.Calls[0].Cfg.Language != "es" {
		t.Errorf("config not forwarded: %+v", primary.Calls[0].Cfg)
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestTranscriberFallback_Failover(t *testing.T) {
	primary := &sttmock.Provider{Err: errors.New("connection refused")}
	secondary := &sttmock.Provider{Transcript: stt.Transcript{Text: "joy to the world", Provider: "deepgram"}}

	fb := NewTranscriberFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("backup", secondary)

	got, err := fb.Transcribe(context.Background(), testClip, stt.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "joy to the world" || got.Provider != "deepgram" {
		t.Errorf("got %+v", got)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Fatalf("calls: primary=%d secondary=%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
}

func TestTranscriberFallback_AllFail(t *testing.T) {
	primary := &sttmock.Provider{Err: errors.New("primary down")}
	secondary := &sttmock.Provider{Err: errors.New("secondary down")}

	fb := NewTranscriberFallback(primary, "whisper", FallbackConfig{})
	fb.AddFallback("deepgram", secondary)

	_, err := fb.Transcribe(context.Background(), testClip, stt.Config{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestTranscriberFallback_EmptyClip(t *testing.T) {
	primary := &sttmock.Provider{}
	fb := NewTranscriberFallback(primary, "whisper", FallbackConfig{})

	_, err := fb.Transcribe(context.Background(), audio.Clip{}, stt.Config{})
	if !errors.Is(err, stt.ErrEmptyAudio) {
		t.Fatalf("err = %v, want ErrEmptyAudio", err)
	}
	if primary.CallCount() != 0 {
		t.Fatal("empty clip must not reach a backend")
	}
}

func TestTranscriberFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &sttmock.Provider{Err: errors.New("timeout")}
	secondary := &sttmock.Provider{Transcript: stt.Transcript{Text: "ok"}}

	fb := NewTranscriberFallback(primary, "whisper", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fb.AddFallback("deepgram", secondary)

	for range 3 {
		if _, err := fb.Transcribe(context.Background(), testClip, stt.Config{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if primary.CallCount() != 1 {
		t.Errorf("primary called %d times, want 1 before its breaker opened", primary.CallCount())
	}
	if s := fb.States()["whisper"]; s != StateOpen {
		t.Errorf("whisper breaker = %v, want open", s)
	}
}
