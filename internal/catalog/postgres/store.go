// Package postgres provides a PostgreSQL-backed [catalog.Store].
//
// Songs live in the songs table with their timing map as JSONB; the
// leaderboard table is trimmed to [catalog.LeaderboardSize] rows after every
// insert.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { ... }
//	defer store.Close()
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/pkg/lyrics"
)

var _ catalog.Store = (*Store)(nil)

// DB is the subset of [pgxpool.Pool] the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store implements [catalog.Store] on PostgreSQL. It is safe for concurrent
// use.
type Store struct {
	db    DB
	close func()
	now   func() time.Time
}

// NewStore connects to the database at dsn, verifies the connection and
// runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres catalog: ping: %w", err)
	}
	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.close = pool.Close
	return s, nil
}

// New wraps an existing connection and runs [Migrate]. The caller keeps
// ownership of db.
func New(ctx context.Context, db DB) (*Store, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("postgres catalog: %w", err)
	}
	return &Store{db: db, close: func() {}, now: time.Now}, nil
}

// Close releases the connection pool opened by [NewStore].
func (s *Store) Close() error {
	s.close()
	return nil
}

// Ping implements [catalog.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres catalog: ping: %w", err)
	}
	return nil
}

// PutSong implements [catalog.Store].
func (s *Store) PutSong(ctx context.Context, song catalog.Song) error {
	m := song.LyricsMap
	if m == nil {
		m = []lyrics.Line{}
	}
	lines, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("postgres catalog: encode lyrics map for %q: %w", song.ID, err)
	}
	const q = `
		INSERT INTO songs (id, title, artist, album, filename, duration, lyrics, lyrics_map, start_offset, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
		    title        = EXCLUDED.title,
		    artist       = EXCLUDED.artist,
		    album        = EXCLUDED.album,
		    filename     = EXCLUDED.filename,
		    duration     = EXCLUDED.duration,
		    lyrics       = EXCLUDED.lyrics,
		    lyrics_map   = EXCLUDED.lyrics_map,
		    start_offset = EXCLUDED.start_offset,
		    updated_at   = now()`
	_, err = s.db.Exec(ctx, q,
		song.ID, song.Title, song.Artist, song.Album, song.Filename,
		song.Duration, song.Lyrics, lines, song.StartOffset,
	)
	if err != nil {
		return fmt.Errorf("postgres catalog: put song %q: %w", song.ID, err)
	}
	return nil
}

const songColumns = `id, title, artist, album, filename, duration, lyrics, lyrics_map, start_offset`

// Song implements [catalog.Store].
func (s *Store) Song(ctx context.Context, id string) (catalog.Song, error) {
	row := s.db.QueryRow(ctx, `SELECT `+songColumns+` FROM songs WHERE id = $1`, id)
	song, err := scanSong(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Song{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Song{}, fmt.Errorf("postgres catalog: get song %q: %w", id, err)
	}
	return song, nil
}

// Songs implements [catalog.Store].
func (s *Store) Songs(ctx context.Context) ([]catalog.Song, error) {
	rows, err := s.db.Query(ctx, `SELECT `+songColumns+` FROM songs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: list songs: %w", err)
	}
	defer rows.Close()

	var out []catalog.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres catalog: scan song: %w", err)
		}
		out = append(out, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres catalog: iterate songs: %w", err)
	}
	return out, nil
}

func scanSong(row pgx.Row) (catalog.Song, error) {
	var (
		song  catalog.Song
		lines []byte
	)
	if err := row.Scan(
		&song.ID, &song.Title, &song.Artist, &song.Album, &song.Filename,
		&song.Duration, &song.Lyrics, &lines, &song.StartOffset,
	); err != nil {
		return catalog.Song{}, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &song.LyricsMap); err != nil {
			return catalog.Song{}, fmt.Errorf("decode lyrics map: %w", err)
		}
	}
	return song, nil
}

// AddEntry implements [catalog.Store]. The insert and the trim run as two
// statements; a concurrent reader may briefly see more than
// [catalog.LeaderboardSize] rows.
func (s *Store) AddEntry(ctx context.Context, e catalog.LeaderboardEntry) (catalog.LeaderboardEntry, error) {
	e, err := catalog.Prepare(e, s.now())
	if err != nil {
		return catalog.LeaderboardEntry{}, err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO leaderboard (id, name, score, song_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Name, e.Score, e.SongID, e.CreatedAt,
	)
	if err != nil {
		return catalog.LeaderboardEntry{}, fmt.Errorf("postgres catalog: add entry: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		DELETE FROM leaderboard
		WHERE seq NOT IN (
		    SELECT seq FROM leaderboard ORDER BY score DESC, seq ASC LIMIT $1
		)`, catalog.LeaderboardSize)
	if err != nil {
		return catalog.LeaderboardEntry{}, fmt.Errorf("postgres catalog: trim leaderboard: %w", err)
	}
	return e, nil
}

// Leaderboard implements [catalog.Store].
func (s *Store) Leaderboard(ctx context.Context) ([]catalog.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, score, song_id, created_at
		FROM leaderboard
		ORDER BY score DESC, seq ASC
		LIMIT $1`, catalog.LeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: leaderboard: %w", err)
	}
	defer rows.Close()

	out := []catalog.LeaderboardEntry{}
	for rows.Next() {
		var e catalog.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Score, &e.SongID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres catalog: scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres catalog: iterate leaderboard: %w", err)
	}
	return out, nil
}
