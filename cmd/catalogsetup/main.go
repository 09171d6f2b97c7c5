// Command catalogsetup seeds the song catalog and imports a directory of
// audio files, looking up synced lyrics on LRCLIB for each track.
//
// Usage:
//
//	catalogsetup -config config.yaml -files ./my_music -artist "US Marine Band"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrWong99/singalong/internal/app"
	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/internal/catalog/postgres"
	"github.com/MrWong99/singalong/internal/catalog/sqlite"
	"github.com/MrWong99/singalong/internal/config"
	"github.com/MrWong99/singalong/internal/lrclib"
	"github.com/MrWong99/singalong/internal/setup"
	"github.com/MrWong99/singalong/pkg/lyrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	files := flag.String("files", "", "directory of audio files to import")
	artist := flag.String("artist", "", "artist name used for every imported file")
	album := flag.String("album", "", "album name used for every imported file")
	songsDir := flag.String("songs-dir", "", "override server.songs_dir")
	offline := flag.Bool("offline", false, "skip the online lyrics lookup")
	concurrency := flag.Int("concurrency", 4, "files processed in parallel")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Setup works without a config file: the in-memory catalog is of no
		// use here, so default to the sqlite file the server also defaults to.
		cfg = config.Default()
		cfg.Catalog.Driver = config.DriverSQLite
		cfg.Catalog.SQLitePath = config.DefaultSQLitePath
	case err != nil:
		fmt.Fprintf(os.Stderr, "catalogsetup: %v\n", err)
		return 1
	}
	if *songsDir != "" {
		cfg.Server.SongsDir = *songsDir
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.SlogLevel(cfg.Server.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Catalog)
	if err != nil {
		slog.Error("failed to open catalog", "driver", cfg.Catalog.Driver, "err", err)
		return 1
	}
	defer store.Close()

	var finder setup.LyricsFinder
	if !*offline {
		finder = lrclib.New(cfg.Lyrics.LRCLibURL, lrclib.WithTimeout(cfg.Lyrics.Timeout))
	}
	im := setup.New(store, finder, cfg.Server.SongsDir,
		setup.WithSynthesizer(lyrics.NewSynthesizer(cfg.Timing)),
		setup.WithConcurrency(*concurrency),
	)

	if _, err := im.SeedDefault(ctx); err != nil {
		slog.Error("failed to seed default song", "err", err)
		return 1
	}

	if *files == "" {
		slog.Info("no -files directory given, only the default song was seeded")
		return 0
	}

	songs, err := im.ImportDir(ctx, *files, *artist, *album)
	for _, s := range songs {
		slog.Info("imported", "id", s.ID, "title", s.Title, "lines", len(s.LyricsMap), "start_offset", s.StartOffset)
	}
	if err != nil {
		slog.Error("some files could not be imported", "err", err)
		return 1
	}
	slog.Info("setup complete", "imported", len(songs))
	return 0
}

// openStore opens the configured catalog backend. The memory driver is
// rejected because nothing would survive the process.
func openStore(ctx context.Context, c config.CatalogConfig) (catalog.Store, error) {
	switch c.Driver {
	case config.DriverPostgres:
		return postgres.NewStore(ctx, c.PostgresDSN)
	case config.DriverSQLite:
		return sqlite.Open(c.SQLitePath)
	default:
		return nil, fmt.Errorf("catalog driver %q cannot persist an import, use sqlite or postgres", c.Driver)
	}
}
