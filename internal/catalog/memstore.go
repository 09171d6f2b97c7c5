package catalog

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store].
type MemStore struct {
	mu      sync.RWMutex
	songs   map[string]Song
	entries []LeaderboardEntry
	now     func() time.Time
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{songs: make(map[string]Song), now: time.Now}
}

// PutSong implements [Store].
func (m *MemStore) PutSong(ctx context.Context, s Song) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.LyricsMap = slices.Clone(s.LyricsMap)
	m.songs[s.ID] = s
	return nil
}

// Song implements [Store].
func (m *MemStore) Song(ctx context.Context, id string) (Song, error) {
	if err := ctx.Err(); err != nil {
		return Song{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.songs[id]
	if !ok {
		return Song{}, ErrNotFound
	}
	return s, nil
}

// Songs implements [Store].
func (m *MemStore) Songs(ctx context.Context) ([]Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Song, 0, len(m.songs))
	for _, s := range m.songs {
		out = append(out, s)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Song) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// AddEntry implements [Store].
func (m *MemStore) AddEntry(ctx context.Context, e LeaderboardEntry) (LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return LeaderboardEntry{}, err
	}
	e, err := Prepare(e, m.now())
	if err != nil {
		return LeaderboardEntry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = Rank(append(m.entries, e))
	return e, nil
}

// Leaderboard implements [Store].
func (m *MemStore) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries), nil
}

// Ping implements [Store]. It always succeeds.
func (m *MemStore) Ping(context.Context) error { return nil }

// Close implements [Store].
func (m *MemStore) Close() error { return nil }
