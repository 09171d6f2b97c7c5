package whisper_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/provider/stt"
	"github.com/MrWong99/singalong/pkg/provider/stt/whisper"
)

// inferenceRequest captures what the fake whisper server received.
type inferenceRequest struct {
	fields  map[string]string
	wavHead string
	wavLen  int
}

// newFakeServer answers POST /inference with responseText and records every
// request it receives.
func newFakeServer(t *testing.T, status int, responseText string) (*httptest.Server, func() []inferenceRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []inferenceRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec := inferenceRequest{fields: map[string]string{}}
		for k, v := range r.MultipartForm.Value {
			rec.fields[k] = v[0]
		}
		if f, _, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(f)
			rec.wavLen = len(data)
			if len(data) >= 4 {
				rec.wavHead = string(data[:4])
			}
		}
		mu.Lock()
		reqs = append(reqs, rec)
		mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "model exploded", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": responseText})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []inferenceRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]inferenceRequest(nil), reqs...)
	}
}

func stereoClip(frames int) audio.Clip {
	return audio.Clip{PCM: make([]byte, frames*4), Format: audio.Format{SampleRate: 48000, Channels: 2}}
}

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()

	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty serverURL, got nil")
	}
}

func TestTranscribe_SendsMonoWAVAndFields(t *testing.T) {
	t.Parallel()

	srv, requests := newFakeServer(t, http.StatusOK, " We wish you\n a merry christmas \n")
	p, err := whisper.New(srv.URL+"/", whisper.WithModel("base.en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Transcribe(context.Background(), stereoClip(4800), stt.Config{
		Language: "en-US",
		Keywords: []stt.KeywordBoost{{Keyword: "figgy"}, {Keyword: "pudding"}},
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "We wish you a merry christmas" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Provider != "whisper" {
		t.Errorf("Provider = %q, want whisper", got.Provider)
	}

	reqs := requests()
	if len(reqs) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(reqs))
	}
	r := reqs[0]
	if r.wavHead != "RIFF" {
		t.Errorf("file field does not start with RIFF: %q", r.wavHead)
	}
	// 0.1 s of 48 kHz stereo becomes 1600 mono samples at 16 kHz.
	if want := 44 + 1600*2; r.wavLen != want {
		t.Errorf("wav size = %d, want %d", r.wavLen, want)
	}
	want := map[string]string{
		"language":        "en",
		"model":           "base.en",
		"prompt":          "figgy, pudding",
		"response_format": "json",
	}
	for k, v := range want {
		if r.fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, r.fields[k], v)
		}
	}
}

func TestTranscribe_OmitsEmptyFields(t *testing.T) {
	t.Parallel()

	srv, requests := newFakeServer(t, http.StatusOK, "")
	p, _ := whisper.New(srv.URL)

	got, err := p.Transcribe(context.Background(), stereoClip(480), stt.Config{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Text != "" {
		t.Errorf("Text = %q, want empty", got.Text)
	}
	r := requests()[0]
	if _, ok := r.fields["model"]; ok {
		t.Error("model field sent although no model is configured")
	}
	if _, ok := r.fields["prompt"]; ok {
		t.Error("prompt field sent without keywords")
	}
	if r.fields["language"] != "en" {
		t.Errorf("language = %q, want default en", r.fields["language"])
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	t.Parallel()

	srv, _ := newFakeServer(t, http.StatusInternalServerError, "")
	p, _ := whisper.New(srv.URL)

	_, err := p.Transcribe(context.Background(), stereoClip(480), stt.Config{})
	if err == nil {
		t.Fatal("expected error on HTTP 500")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("error %q should carry status and body", err)
	}
}

func TestTranscribe_EmptyClip(t *testing.T) {
	t.Parallel()

	p, _ := whisper.New("http://127.0.0.1:1")
	_, err := p.Transcribe(context.Background(), audio.Clip{Format: audio.STTFormat}, stt.Config{})
	if !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("err = %v, want ErrEmptyAudio", err)
	}
}

func TestTranscribe_CancelledContext(t *testing.T) {
	t.Parallel()

	p, _ := whisper.New("http://127.0.0.1:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Transcribe(ctx, stereoClip(480), stt.Config{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
