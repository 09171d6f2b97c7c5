// Package server exposes the sing-along HTTP API:
//
//	GET  /api/songs          catalog listing with timing maps
//	GET  /api/songs/{id}     one song
//	GET  /songs/{file...}    audio files from the songs directory
//	GET  /leaderboard        best scores
//	POST /leaderboard        submit {name, score, song_id}
//	POST /transcribe         multipart audio_data + song_id; transcribe and score
//	POST /api/score          score a transcript without audio
//
// Errors are JSON objects of the form {"error": "..."}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/pkg/provider/stt"
	"github.com/MrWong99/singalong/pkg/scoring"
)

const defaultMaxUpload = 32 << 20

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the metrics recorder. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMaxUploadBytes caps the size of a /transcribe request body.
// Default: 32 MiB.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithLanguage sets the BCP-47 language passed to the transcriber.
func WithLanguage(lang string) Option {
	return func(s *Server) { s.language = lang }
}

// WithEngine sets the initial scoring engine. Default: Jaro-Winkler
// similarity with default thresholds.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Server) { s.engine.Store(e) }
}

// Server serves the HTTP API. It is safe for concurrent use.
type Server struct {
	store       catalog.Store
	transcriber stt.Provider
	songsDir    string
	maxUpload   int64
	language    string
	metrics     *observe.Metrics

	engine atomic.Pointer[scoring.Engine]
	mux    *http.ServeMux
}

// New creates a Server. transcriber may be nil, in which case /transcribe
// answers 503.
func New(store catalog.Store, transcriber stt.Provider, songsDir string, opts ...Option) *Server {
	s := &Server{
		store:       store,
		transcriber: transcriber,
		songsDir:    songsDir,
		maxUpload:   defaultMaxUpload,
		mux:         http.NewServeMux(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.engine.Load() == nil {
		s.engine.Store(scoring.NewEngine(scoring.DefaultConfig()))
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/songs", s.handleSongs)
	s.mux.HandleFunc("GET /api/songs/{id}", s.handleSong)
	s.mux.HandleFunc("GET /songs/{file...}", s.handleAudio)
	s.mux.HandleFunc("GET /leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("POST /leaderboard", s.handleSubmitScore)
	s.mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	s.mux.HandleFunc("POST /api/score", s.handleScore)
}

// Handle registers an additional handler, e.g. health or metrics endpoints.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Mux exposes the underlying mux for packages that register their own
// routes, such as [health.Handler.Register].
func (s *Server) Mux() *http.ServeMux { return s.mux }

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// SetEngine swaps the scoring engine used by subsequent requests.
func (s *Server) SetEngine(e *scoring.Engine) {
	if e != nil {
		s.engine.Store(e)
	}
}

// Engine returns the scoring engine currently in use.
func (s *Server) Engine() *scoring.Engine { return s.engine.Load() }

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.store.Songs(r.Context())
	if err != nil {
		s.internalError(w, r, "list songs", err)
		return
	}
	if songs == nil {
		songs = []catalog.Song{}
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	song, err := s.store.Song(r.Context(), r.PathValue("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "get song", err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// handleAudio serves files below songsDir. ServeFileFS rejects paths that
// try to escape the directory.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, os.DirFS(s.songsDir), r.PathValue("file"))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Leaderboard(r.Context())
	if err != nil {
		s.internalError(w, r, "leaderboard", err)
		return
	}
	if entries == nil {
		entries = []catalog.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type submitRequest struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	SongID string `json:"song_id"`
}

func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid")
		return
	}
	if req.Score < 0 || req.Score > 100 {
		writeError(w, http.StatusBadRequest, "score must be between 0 and 100")
		return
	}
	e, err := s.store.AddEntry(r.Context(), catalog.LeaderboardEntry{
		Name:   req.Name,
		Score:  req.Score,
		SongID: req.SongID,
	})
	if errors.Is(err, catalog.ErrInvalidEntry) {
		writeError(w, http.StatusBadRequest, "Invalid")
		return
	}
	if err != nil {
		s.internalError(w, r, "add leaderboard entry", err)
		return
	}
	s.metrics.RecordLeaderboardSubmission(r.Context())
	observe.Logger(r.Context()).Info("leaderboard entry saved", "id", e.ID, "score", e.Score, "song_id", e.SongID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "id": e.ID})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	observe.Logger(r.Context()).Error("server: "+op, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// lookupLyrics returns the scoring lyrics of songID, or "" when the song is
// unknown or has none. A missing song is not an error for scoring purposes.
func (s *Server) lookupLyrics(ctx context.Context, songID string) (string, error) {
	log := observe.Logger(ctx)
	if songID == "" {
		log.Warn("no song id supplied, scoring skipped")
		return "", nil
	}
	song, err := s.store.Song(ctx, songID)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Warn("song not found, scoring skipped", "song_id", songID)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if song.Lyrics == "" {
		log.Warn("song has no lyrics, scoring skipped", "song_id", songID)
	}
	return song.Lyrics, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("server: write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
