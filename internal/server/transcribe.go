package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/provider/stt"
	"github.com/MrWong99/singalong/pkg/scoring"
)

const (
	// maxKeywords caps the vocabulary hints sent with one transcription.
	maxKeywords = 40

	keywordBoost = 1.5
)

// transcribeResponse is the body of a successful /transcribe call.
type transcribeResponse struct {
	Transcript string         `json:"transcript"`
	Score      int            `json:"score"`
	Comparison string         `json:"comparison"`
	Spans      []scoring.Span `json:"spans"`
	Provider   string         `json:"provider,omitempty"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := observe.Logger(ctx)

	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "recording too large")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, http.StatusBadRequest, "malformed form")
			return
		}
	}

	file, _, err := r.FormFile("audio_data")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio")
		return
	}
	clip, err := audio.DecodeWAV(bytes.NewReader(data))
	if errors.Is(err, audio.ErrNotWAV) {
		writeError(w, http.StatusUnsupportedMediaType, "recording must be WAV")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable recording")
		return
	}

	songID := r.FormValue("song_id")
	target, err := s.lookupLyrics(ctx, songID)
	if err != nil {
		s.internalError(w, r, "lookup lyrics", err)
		return
	}

	engine := s.engine.Load()
	s.metrics.ActiveTranscriptions.Add(ctx, 1)
	defer s.metrics.ActiveTranscriptions.Add(ctx, -1)

	start := time.Now()
	t, err := s.transcriber.Transcribe(ctx, clip, stt.Config{
		Language: s.language,
		Keywords: keywords(engine, target),
	})
	provider := t.Provider
	if provider == "" {
		provider = "unknown"
	}
	switch {
	case errors.Is(err, stt.ErrEmptyAudio):
		s.metrics.RecordTranscription(ctx, provider, observe.StatusError, time.Since(start))
		writeError(w, http.StatusBadRequest, "No audio")
		return
	case err != nil:
		s.metrics.RecordTranscription(ctx, provider, observe.StatusError, time.Since(start))
		log.Error("transcription failed", "song_id", songID, "err", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	s.metrics.RecordTranscription(ctx, provider, observe.StatusOK, time.Since(start))

	resp := transcribeResponse{
		Transcript: t.Text,
		Provider:   t.Provider,
	}
	if target != "" {
		res := engine.Score(t.Text, target)
		resp.Score = res.Score
		resp.Spans = res.Spans
		resp.Comparison = scoring.RenderHTML(res.Spans)
		s.metrics.RecordScore(ctx, res.Score)
	}
	log.Info("performance scored",
		"song_id", songID,
		"provider", t.Provider,
		"score", resp.Score,
		"latency", t.Latency,
	)
	writeJSON(w, http.StatusOK, resp)
}

type scoreRequest struct {
	Performed string `json:"performed"`
	Target    string `json:"target"`
	SongID    string `json:"song_id"`
}

type scoreResponse struct {
	scoring.Result
	HTML string `json:"html"`
}

// handleScore scores a transcript against explicit target lyrics or the
// lyrics of a catalog song.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid")
		return
	}
	target := req.Target
	if target == "" && req.SongID != "" {
		var err error
		target, err = s.lookupLyrics(r.Context(), req.SongID)
		if err != nil {
			s.internalError(w, r, "lookup lyrics", err)
			return
		}
	}
	res := s.engine.Load().Score(req.Performed, target)
	if res.Spans == nil {
		res.Spans = []scoring.Span{}
	}
	writeJSON(w, http.StatusOK, scoreResponse{Result: res, HTML: scoring.RenderHTML(res.Spans)})
}

// keywords picks the distinct words of the lyrics longer than three runes,
// in order of first appearance. Words are tokenized by the engine that
// scores the take, so hints and scoring agree on substitutions.
func keywords(engine *scoring.Engine, lyrics string) []stt.KeywordBoost {
	if lyrics == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []stt.KeywordBoost
	for _, tok := range engine.Tokens(lyrics) {
		if len([]rune(tok)) <= 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, stt.KeywordBoost{Keyword: tok, Boost: keywordBoost})
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
