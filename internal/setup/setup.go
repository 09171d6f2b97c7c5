// Package setup populates the song catalog.
//
// [Importer.SeedDefault] (re)writes the built-in default song.
// [Importer.ImportDir] scans a directory of audio files and, for each one,
// derives a clean title and song ID, copies the file into the songs
// directory, finds lyrics and generates the word timing map:
//
//  1. A sidecar file next to the audio ("song.lrc" timestamped or
//     "song.txt" plain) wins.
//  2. Otherwise synced lyrics are looked up online.
//  3. Otherwise the generic placeholder lyrics are used.
//
// Files are processed concurrently with a bounded worker count.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/internal/lrclib"
	"github.com/MrWong99/singalong/pkg/audio"
	"github.com/MrWong99/singalong/pkg/lyrics"
)

const (
	// DefaultDuration is assumed for tracks whose length cannot be probed.
	DefaultDuration = 180.0

	defaultConcurrency = 4
	unknownArtist      = "Unknown Artist"
)

// LyricsFinder looks up synced lyrics for a track.
type LyricsFinder interface {
	SyncedLyrics(ctx context.Context, artist, title string, duration float64) (lrclib.Track, error)
}

var _ LyricsFinder = (*lrclib.Client)(nil)

// Option configures an [Importer].
type Option func(*Importer)

// WithConcurrency bounds how many files are processed at once. Default: 4.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithSynthesizer replaces the default timing synthesizer.
func WithSynthesizer(s *lyrics.Synthesizer) Option {
	return func(im *Importer) { im.synth = s }
}

// WithProbe replaces the duration probe. Default: [audio.ProbeDuration].
func WithProbe(probe func(path string) (float64, error)) Option {
	return func(im *Importer) { im.probe = probe }
}

// Importer writes songs into a [catalog.Store].
type Importer struct {
	store       catalog.Store
	finder      LyricsFinder
	songsDir    string
	synth       *lyrics.Synthesizer
	concurrency int
	probe       func(path string) (float64, error)
}

// New creates an Importer that copies audio into songsDir. finder may be
// nil, in which case no online lookup happens.
func New(store catalog.Store, finder LyricsFinder, songsDir string, opts ...Option) *Importer {
	im := &Importer{
		store:       store,
		finder:      finder,
		songsDir:    songsDir,
		synth:       lyrics.NewSynthesizer(lyrics.DefaultTimingConfig()),
		concurrency: defaultConcurrency,
		probe:       audio.ProbeDuration,
	}
	for _, o := range opts {
		o(im)
	}
	return im
}

// SeedDefault writes [DefaultSong] to the store, replacing any earlier
// version so timing fixes take effect.
func (im *Importer) SeedDefault(ctx context.Context) (catalog.Song, error) {
	song := catalog.Song{
		ID:       DefaultSong.ID,
		Title:    DefaultSong.Title,
		Artist:   DefaultSong.Artist,
		Filename: DefaultSong.Filename,
		Duration: DefaultSong.Duration,
	}
	song.ApplyTiming(im.synth.Generate(DefaultSong.Lyrics, DefaultSong.Duration))

	if err := im.store.PutSong(ctx, song); err != nil {
		return catalog.Song{}, fmt.Errorf("setup: seed default song: %w", err)
	}
	if _, err := os.Stat(filepath.Join(im.songsDir, song.Filename)); err != nil {
		slog.Warn("setup: default song audio missing, place it in the songs directory",
			"file", song.Filename, "songs_dir", im.songsDir)
	}
	slog.Info("setup: default song seeded", "song_id", song.ID, "lines", len(song.LyricsMap))
	return song, nil
}

// ImportDir imports every audio file in dir. artist is used for every file
// (default "Unknown Artist"); album is optional. Files that fail are logged
// and skipped; the returned error joins their failures. The successfully
// imported songs are returned in file name order.
func (im *Importer) ImportDir(ctx context.Context, dir, artist, album string) ([]catalog.Song, error) {
	files, err := ScanDir(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		slog.Warn("setup: no audio files found", "dir", dir)
		return nil, nil
	}
	if err := os.MkdirAll(im.songsDir, 0o755); err != nil {
		return nil, fmt.Errorf("setup: create songs dir: %w", err)
	}
	if artist == "" {
		artist = unknownArtist
	}

	songs := make([]*catalog.Song, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for i, path := range files {
		g.Go(func() error {
			song, err := im.importFile(gctx, path, artist, album)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				slog.Error("setup: import failed", "file", path, "err", err)
				errs[i] = fmt.Errorf("%s: %w", filepath.Base(path), err)
				return nil
			}
			songs[i] = &song
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("setup: import %s: %w", dir, err)
	}

	out := make([]catalog.Song, 0, len(songs))
	for _, s := range songs {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, errors.Join(errs...)
}

func (im *Importer) importFile(ctx context.Context, path, artist, album string) (catalog.Song, error) {
	name := filepath.Base(path)
	title := CleanTitle(titleFromFilename(name), artist)
	id := CleanFilename(title)
	if id == "" {
		return catalog.Song{}, fmt.Errorf("no usable title in %q", name)
	}

	duration, err := im.probe(path)
	if err != nil || duration <= 0 {
		slog.Debug("setup: duration unknown, using default", "file", name, "err", err)
		duration = DefaultDuration
	}

	dest := id + strings.ToLower(filepath.Ext(name))
	if err := copyFile(path, filepath.Join(im.songsDir, dest)); err != nil {
		return catalog.Song{}, err
	}

	block, dur := im.findLyrics(ctx, path, artist, title, duration)
	song := catalog.Song{
		ID:       id,
		Title:    artist + " - " + title,
		Artist:   artist,
		Album:    album,
		Filename: dest,
		Duration: duration,
	}
	song.ApplyTiming(im.synth.Generate(block, dur))

	if err := im.store.PutSong(ctx, song); err != nil {
		return catalog.Song{}, fmt.Errorf("store: %w", err)
	}
	slog.Info("setup: song imported", "song_id", id, "title", song.Title, "lines", len(song.LyricsMap))
	return song, nil
}

// findLyrics returns the lyrics block and the duration to hand to the
// synthesizer. Timestamped blocks get duration 0 so only their tags drive
// timing.
func (im *Importer) findLyrics(ctx context.Context, path, artist, title string, duration float64) (string, float64) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if b, err := os.ReadFile(base + ".lrc"); err == nil && len(lyrics.ParseLRC(string(b))) > 0 {
		slog.Debug("setup: using .lrc sidecar", "file", path)
		return string(b), 0
	}
	if b, err := os.ReadFile(base + ".txt"); err == nil && strings.TrimSpace(string(b)) != "" {
		slog.Debug("setup: using .txt sidecar", "file", path)
		return string(b), duration
	}

	if im.finder != nil {
		track, err := im.finder.SyncedLyrics(ctx, artist, title, duration)
		switch {
		case err == nil:
			return track.SyncedLyrics, 0
		case errors.Is(err, lrclib.ErrNoSyncedLyrics):
			slog.Info("setup: no synced lyrics online", "artist", artist, "title", title)
		default:
			slog.Warn("setup: lyrics lookup failed", "artist", artist, "title", title, "err", err)
		}
	}
	return lyrics.GenericLyrics, duration
}

// audioExts are the importable extensions, matched case-insensitively.
var audioExts = []string{".mp3", ".ogg", ".flac", ".wav"}

// ScanDir returns the audio files directly inside dir, sorted by name.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("setup: scan %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(audioExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// copyFile copies src to dst unless both name the same file.
func copyFile(src, dst string) error {
	if sameFile(src, dst) {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".import-*")
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}

func sameFile(a, b string) bool {
	sa, err := os.Stat(a)
	if err != nil {
		return false
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}
