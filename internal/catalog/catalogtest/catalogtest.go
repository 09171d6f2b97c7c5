// Package catalogtest holds behavioural tests shared by every
// [catalog.Store] implementation.
package catalogtest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/pkg/lyrics"
)

// Run exercises newStore's implementation. newStore must return an empty
// store and register its own cleanup.
func Run(t *testing.T, newStore func(t *testing.T) catalog.Store) {
	t.Helper()

	t.Run("SongRoundTrip", func(t *testing.T) { testSongRoundTrip(t, newStore(t)) })
	t.Run("SongNotFound", func(t *testing.T) { testSongNotFound(t, newStore(t)) })
	t.Run("PutSongReplaces", func(t *testing.T) { testPutSongReplaces(t, newStore(t)) })
	t.Run("SongsOrderedByID", func(t *testing.T) { testSongsOrdered(t, newStore(t)) })
	t.Run("LeaderboardRanking", func(t *testing.T) { testLeaderboardRanking(t, newStore(t)) })
	t.Run("LeaderboardTruncates", func(t *testing.T) { testLeaderboardTruncates(t, newStore(t)) })
	t.Run("EntryRequiresName", func(t *testing.T) { testEntryRequiresName(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) {
		if err := newStore(t).Ping(context.Background()); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

// Song returns a fully populated song fixture.
func Song(id string) catalog.Song {
	return catalog.Song{
		ID:       id,
		Title:    "US Marine Band - " + id,
		Artist:   "US Marine Band",
		Album:    "Holiday",
		Filename: id + ".mp3",
		Duration: 60,
		Lyrics:   "We wish you a Merry Christmas",
		LyricsMap: []lyrics.Line{{
			Time: 14,
			Text: "We wish you a Merry Christmas",
			Words: []lyrics.WordTiming{
				{Text: "We", Start: 14, End: 14.35},
				{Text: "wish", Start: 14.35, End: 15.1},
			},
		}},
		StartOffset: 10,
	}
}

func testSongRoundTrip(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	want := Song("merry_christmas")
	if err := s.PutSong(ctx, want); err != nil {
		t.Fatalf("PutSong: %v", err)
	}
	got, err := s.Song(ctx, want.ID)
	if err != nil {
		t.Fatalf("Song: %v", err)
	}
	if got.Title != want.Title || got.Artist != want.Artist || got.Album != want.Album ||
		got.Filename != want.Filename || got.Duration != want.Duration ||
		got.Lyrics != want.Lyrics || got.StartOffset != want.StartOffset {
		t.Errorf("Song = %+v, want %+v", got, want)
	}
	if len(got.LyricsMap) != 1 || len(got.LyricsMap[0].Words) != 2 {
		t.Fatalf("LyricsMap = %+v", got.LyricsMap)
	}
	if w := got.LyricsMap[0].Words[1]; w.Text != "wish" || w.Start != 14.35 || w.End != 15.1 {
		t.Errorf("word = %+v", w)
	}
}

func testSongNotFound(t *testing.T, s catalog.Store) {
	_, err := s.Song(context.Background(), "nope")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func testPutSongReplaces(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	song := Song("a")
	if err := s.PutSong(ctx, song); err != nil {
		t.Fatalf("PutSong: %v", err)
	}
	song.Lyrics = "Now bring us some figgy pudding"
	if err := s.PutSong(ctx, song); err != nil {
		t.Fatalf("PutSong again: %v", err)
	}
	got, err := s.Song(ctx, "a")
	if err != nil {
		t.Fatalf("Song: %v", err)
	}
	if got.Lyrics != song.Lyrics {
		t.Errorf("Lyrics = %q, want replacement", got.Lyrics)
	}
	all, err := s.Songs(ctx)
	if err != nil {
		t.Fatalf("Songs: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Songs = %d, want 1", len(all))
	}
}

func testSongsOrdered(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	for _, id := range []string{"silent_night", "deck_the_halls", "jingle_bells"} {
		if err := s.PutSong(ctx, Song(id)); err != nil {
			t.Fatalf("PutSong(%s): %v", id, err)
		}
	}
	all, err := s.Songs(ctx)
	if err != nil {
		t.Fatalf("Songs: %v", err)
	}
	want := []string{"deck_the_halls", "jingle_bells", "silent_night"}
	if len(all) != len(want) {
		t.Fatalf("Songs = %d, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("Songs[%d] = %q, want %q", i, all[i].ID, id)
		}
	}
}

func testLeaderboardRanking(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	for _, e := range []catalog.LeaderboardEntry{
		{Name: "ana", Score: 70, SongID: "a"},
		{Name: "ben", Score: 95, SongID: "a"},
		{Name: "cai", Score: 70, SongID: "b"},
	} {
		stored, err := s.AddEntry(ctx, e)
		if err != nil {
			t.Fatalf("AddEntry(%s): %v", e.Name, err)
		}
		if stored.ID == "" || stored.CreatedAt.IsZero() {
			t.Errorf("AddEntry(%s) did not fill ID and CreatedAt: %+v", e.Name, stored)
		}
	}
	board, err := s.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	want := []string{"ben", "ana", "cai"}
	if len(board) != len(want) {
		t.Fatalf("Leaderboard = %d entries, want %d", len(board), len(want))
	}
	for i, name := range want {
		if board[i].Name != name {
			t.Errorf("Leaderboard[%d] = %q, want %q", i, board[i].Name, name)
		}
	}
	if board[0].Score != 95 || board[0].SongID != "a" {
		t.Errorf("top entry = %+v", board[0])
	}
}

func testLeaderboardTruncates(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	for i := range catalog.LeaderboardSize + 5 {
		e := catalog.LeaderboardEntry{Name: fmt.Sprintf("p%02d", i), Score: i}
		if _, err := s.AddEntry(ctx, e); err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
	}
	board, err := s.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != catalog.LeaderboardSize {
		t.Fatalf("Leaderboard = %d entries, want %d", len(board), catalog.LeaderboardSize)
	}
	if board[0].Score != catalog.LeaderboardSize+4 {
		t.Errorf("best score = %d, want %d", board[0].Score, catalog.LeaderboardSize+4)
	}
	if last := board[len(board)-1].Score; last != 5 {
		t.Errorf("lowest retained score = %d, want 5", last)
	}
}

func testEntryRequiresName(t *testing.T, s catalog.Store) {
	ctx := context.Background()
	_, err := s.AddEntry(ctx, catalog.LeaderboardEntry{Name: "  ", Score: 10})
	if !errors.Is(err, catalog.ErrInvalidEntry) {
		t.Errorf("err = %v, want ErrInvalidEntry", err)
	}
	board, err := s.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(board) != 0 {
		t.Errorf("rejected entry was stored: %+v", board)
	}
}
