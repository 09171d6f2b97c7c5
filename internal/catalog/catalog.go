// Package catalog defines the song catalog and leaderboard records together
// with the [Store] abstraction that persists them.
//
// Three implementations exist:
//
//   - [MemStore]: in-process maps, lost on restart.
//   - postgres.Store: PostgreSQL via pgx, lyrics map stored as JSONB.
//   - sqlite.Store: a single SQLite file via gorm.
//
// Songs are written once by catalog setup and treated as read-only by the
// HTTP server. The leaderboard keeps the best [LeaderboardSize] entries.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/singalong/pkg/lyrics"
)

// LeaderboardSize is the number of entries a leaderboard retains.
const LeaderboardSize = 50

var (
	// ErrNotFound is returned when a song does not exist.
	ErrNotFound = errors.New("catalog: not found")

	// ErrInvalidEntry is returned when a leaderboard entry has no name.
	ErrInvalidEntry = errors.New("catalog: leaderboard entry requires a name")
)

// Song is one playable track with its scoring lyrics and timing map.
type Song struct {
	// ID is the file-derived identifier, e.g. "merry_christmas".
	ID string `json:"id"`

	// Title is the display title. Locally imported songs use
	// "Artist - Title".
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`

	// Filename is the audio file name inside the songs directory.
	Filename string `json:"filename"`

	// Duration is the track length in seconds, 0 when unknown.
	Duration float64 `json:"duration,omitempty"`

	// Lyrics is the clean lyrics text performances are scored against.
	Lyrics string `json:"lyrics"`

	// LyricsMap is the word-level timing table used for highlighting.
	LyricsMap []lyrics.Line `json:"lyrics_map"`

	// StartOffset is the intro offset in seconds.
	StartOffset float64 `json:"start_offset"`
}

// ApplyTiming stores m and the clean lyrics text on s.
func (s *Song) ApplyTiming(clean string, m lyrics.Map) {
	s.Lyrics = clean
	s.LyricsMap = m.Lines
	s.StartOffset = m.IntroOffset
}

// LeaderboardEntry is one submitted score.
type LeaderboardEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	SongID    string    `json:"song_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Prepare validates e and fills a missing ID and timestamp.
func Prepare(e LeaderboardEntry, now time.Time) (LeaderboardEntry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return LeaderboardEntry{}, ErrInvalidEntry
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	return e, nil
}

// Rank sorts entries by score, highest first, keeping submission order among
// equal scores, and truncates the result to [LeaderboardSize].
func Rank(entries []LeaderboardEntry) []LeaderboardEntry {
	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	return entries
}

// Store persists songs and the leaderboard. Implementations must be safe
// for concurrent use.
type Store interface {
	// PutSong inserts or replaces the song with s.ID.
	PutSong(ctx context.Context, s Song) error

	// Song returns the song with id, or [ErrNotFound].
	Song(ctx context.Context, id string) (Song, error)

	// Songs returns every song ordered by ID.
	Songs(ctx context.Context) ([]Song, error)

	// AddEntry validates and records e, then trims the leaderboard to
	// [LeaderboardSize]. It returns the stored entry.
	AddEntry(ctx context.Context, e LeaderboardEntry) (LeaderboardEntry, error)

	// Leaderboard returns the retained entries, best first.
	Leaderboard(ctx context.Context) ([]LeaderboardEntry, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
