package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/singalong/internal/catalog"
)

func newFakeStore(t *testing.T, db *fakeDB) *Store {
	t.Helper()
	s, err := New(context.Background(), db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.now = func() time.Time { return time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestNew_RunsMigrations(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	newFakeStore(t, db)

	if db.statements("CREATE TABLE IF NOT EXISTS songs") != 1 {
		t.Error("songs table not migrated")
	}
	if db.statements("CREATE TABLE IF NOT EXISTS leaderboard") != 1 {
		t.Error("leaderboard table not migrated")
	}
}

func TestNew_MigrationError(t *testing.T) {
	t.Parallel()
	db := &fakeDB{execErr: func(sql string) error {
		if strings.Contains(sql, "leaderboard") {
			return errors.New("permission denied")
		}
		return nil
	}}
	_, err := New(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "migrate leaderboard") {
		t.Errorf("err = %v, want migrate leaderboard failure", err)
	}
}

func TestPutSong_EncodesLyricsMapAsJSON(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	s := newFakeStore(t, db)

	song := catalog.Song{ID: "a", Title: "A", Filename: "a.mp3"}
	if err := s.PutSong(context.Background(), song); err != nil {
		t.Fatalf("PutSong: %v", err)
	}
	args := db.args[len(db.args)-1]
	if args[0] != "a" {
		t.Errorf("id arg = %v", args[0])
	}
	if got := string(args[7].([]byte)); got != "[]" {
		t.Errorf("lyrics_map arg = %s, want [] for an empty map", got)
	}
}

func TestSong_NotFound(t *testing.T) {
	t.Parallel()
	s := newFakeStore(t, &fakeDB{})
	if _, err := s.Song(context.Background(), "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSong_DecodesLyricsMap(t *testing.T) {
	t.Parallel()
	db := &fakeDB{rows: [][]any{{
		"a", "A", "Band", "", "a.mp3", 60.0, "We wish you",
		[]byte(`[{"time":14,"text":"We wish you","words":[{"text":"We","start":14,"end":14.3}]}]`),
		10.0,
	}}}
	s := newFakeStore(t, db)

	song, err := s.Song(context.Background(), "a")
	if err != nil {
		t.Fatalf("Song: %v", err)
	}
	if len(song.LyricsMap) != 1 || song.LyricsMap[0].Words[0].End != 14.3 {
		t.Errorf("LyricsMap = %+v", song.LyricsMap)
	}
	if song.StartOffset != 10 || song.Artist != "Band" {
		t.Errorf("song = %+v", song)
	}
}

func TestSong_CorruptLyricsMap(t *testing.T) {
	t.Parallel()
	db := &fakeDB{rows: [][]any{{
		"a", "A", "", "", "a.mp3", 0.0, "", []byte(`{not json`), 0.0,
	}}}
	s := newFakeStore(t, db)
	_, err := s.Song(context.Background(), "a")
	if err == nil || errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want decode failure", err)
	}
}

func TestSongs_QueryError(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	s := newFakeStore(t, db)
	db.rowErr = errors.New("connection reset")
	if _, err := s.Songs(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestAddEntry_InsertsThenTrims(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	s := newFakeStore(t, db)

	e, err := s.AddEntry(context.Background(), catalog.LeaderboardEntry{Name: "ana", Score: 88})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if e.ID == "" || !e.CreatedAt.Equal(s.now()) {
		t.Errorf("entry = %+v", e)
	}
	if db.statements("INSERT INTO leaderboard") != 1 || db.statements("DELETE FROM leaderboard") != 1 {
		t.Errorf("statements = %v", db.execs)
	}
	trim := db.args[len(db.args)-1]
	if trim[0] != catalog.LeaderboardSize {
		t.Errorf("trim limit = %v, want %d", trim[0], catalog.LeaderboardSize)
	}
}

func TestAddEntry_RejectsMissingName(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	s := newFakeStore(t, db)
	if _, err := s.AddEntry(context.Background(), catalog.LeaderboardEntry{Score: 1}); !errors.Is(err, catalog.ErrInvalidEntry) {
		t.Errorf("err = %v, want ErrInvalidEntry", err)
	}
	if db.statements("INSERT INTO leaderboard") != 0 {
		t.Error("invalid entry reached the database")
	}
}

func TestLeaderboard_ScansRows(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{
		{"id-1", "ben", 95, "a", at},
		{"id-2", "ana", 70, "", at},
	}}
	s := newFakeStore(t, db)

	board, err := s.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 2 || board[0].Name != "ben" || board[1].Score != 70 {
		t.Errorf("board = %+v", board)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	s := newFakeStore(t, db)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	db.pingErr = errors.New("down")
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
}
