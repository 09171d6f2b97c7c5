// Package sqlite provides a single-file SQLite [catalog.Store] built on gorm
// and the pure-Go glebarez driver, so no CGO toolchain is needed.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/pkg/lyrics"
)

var _ catalog.Store = (*Store)(nil)

type songRow struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Artist      string
	Album       string
	Filename    string `gorm:"not null"`
	Duration    float64
	Lyrics      string
	LyricsMap   string `gorm:"not null;default:'[]'"`
	StartOffset float64
	UpdatedAt   time.Time
}

func (songRow) TableName() string { return "songs" }

type entryRow struct {
	Seq       uint   `gorm:"primaryKey;autoIncrement"`
	EntryID   string `gorm:"column:entry_id;uniqueIndex;size:36"`
	Name      string `gorm:"not null"`
	Score     int    `gorm:"index"`
	SongID    string
	CreatedAt time.Time
}

func (entryRow) TableName() string { return "leaderboard" }

// Store implements [catalog.Store] on a SQLite file.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite catalog: create dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite catalog: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite catalog: get sql.DB: %w", err)
	}
	// SQLite serialises writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&songRow{}, &entryRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite catalog: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite catalog: close: %w", err)
	}
	return sqlDB.Close()
}

// Ping implements [catalog.Store].
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite catalog: ping: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite catalog: ping: %w", err)
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
		return fmt.Errorf("sqlite catalog: encode lyrics map for %q: %w", song.ID, err)
	}
	row := songRow{
		ID:          song.ID,
		Title:       song.Title,
		Artist:      song.Artist,
		Album:       song.Album,
		Filename:    song.Filename,
		Duration:    song.Duration,
		Lyrics:      song.Lyrics,
		LyricsMap:   string(lines),
		StartOffset: song.StartOffset,
		UpdatedAt:   s.now().UTC(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("sqlite catalog: put song %q: %w", song.ID, err)
	}
	return nil
}

// Song implements [catalog.Store].
func (s *Store) Song(ctx context.Context, id string) (catalog.Song, error) {
	var row songRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return catalog.Song{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Song{}, fmt.Errorf("sqlite catalog: get song %q: %w", id, err)
	}
	return row.song()
}

// Songs implements [catalog.Store].
func (s *Store) Songs(ctx context.Context) ([]catalog.Song, error) {
	var rows []songRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlite catalog: list songs: %w", err)
	}
	out := make([]catalog.Song, 0, len(rows))
	for _, r := range rows {
		song, err := r.song()
		if err != nil {
			return nil, err
		}
		out = append(out, song)
	}
	return out, nil
}

func (r songRow) song() (catalog.Song, error) {
	song := catalog.Song{
		ID:          r.ID,
		Title:       r.Title,
		Artist:      r.Artist,
		Album:       r.Album,
		Filename:    r.Filename,
		Duration:    r.Duration,
		Lyrics:      r.Lyrics,
		StartOffset: r.StartOffset,
	}
	if r.LyricsMap != "" {
		if err := json.Unmarshal([]byte(r.LyricsMap), &song.LyricsMap); err != nil {
			return catalog.Song{}, fmt.Errorf("sqlite catalog: decode lyrics map for %q: %w", r.ID, err)
		}
	}
	return song, nil
}

// AddEntry implements [catalog.Store]. Insert and trim share a transaction.
func (s *Store) AddEntry(ctx context.Context, e catalog.LeaderboardEntry) (catalog.LeaderboardEntry, error) {
	e, err := catalog.Prepare(e, s.now())
	if err != nil {
		return catalog.LeaderboardEntry{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := entryRow{EntryID: e.ID, Name: e.Name, Score: e.Score, SongID: e.SongID, CreatedAt: e.CreatedAt}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		keep := tx.Model(&entryRow{}).Select("seq").Order("score DESC, seq ASC").Limit(catalog.LeaderboardSize)
		if err := tx.Where("seq NOT IN (?)", keep).Delete(&entryRow{}).Error; err != nil {
			return fmt.Errorf("trim: %w", err)
		}
		return nil
	})
	if err != nil {
		return catalog.LeaderboardEntry{}, fmt.Errorf("sqlite catalog: add entry: %w", err)
	}
	return e, nil
}

// Leaderboard implements [catalog.Store].
func (s *Store) Leaderboard(ctx context.Context) ([]catalog.LeaderboardEntry, error) {
	var rows []entryRow
	err := s.db.WithContext(ctx).
		Order("score DESC, seq ASC").
		Limit(catalog.LeaderboardSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sqlite catalog: leaderboard: %w", err)
	}
	out := make([]catalog.LeaderboardEntry, len(rows))
	for i, r := range rows {
		out[i] = catalog.LeaderboardEntry{
			ID:        r.EntryID,
			Name:      r.Name,
			Score:     r.Score,
			SongID:    r.SongID,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}
