// Package app wires the sing-along subsystems into a running service.
//
// The App struct owns the full lifecycle: New opens the catalog, seeds the
// default song and assembles the HTTP handler, Run serves until the context
// is cancelled, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithMetrics, WithListener). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/MrWong99/singalong/internal/catalog"
	"github.com/MrWong99/singalong/internal/catalog/postgres"
	"github.com/MrWong99/singalong/internal/catalog/sqlite"
	"github.com/MrWong99/singalong/internal/config"
	"github.com/MrWong99/singalong/internal/health"
	"github.com/MrWong99/singalong/internal/observe"
	"github.com/MrWong99/singalong/internal/resilience"
	"github.com/MrWong99/singalong/internal/server"
	"github.com/MrWong99/singalong/internal/setup"
	"github.com/MrWong99/singalong/pkg/lyrics"
	"github.com/MrWong99/singalong/pkg/provider/stt"
	"github.com/MrWong99/singalong/pkg/scoring"
)

const readHeaderTimeout = 10 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT stt.Provider
}

// breakerReporter is implemented by STT wrappers that track per-backend
// circuit breakers, such as [resilience.TranscriberFallback].
type breakerReporter interface {
	States() map[string]resilience.State
}

// App owns all subsystem lifetimes of the sing-along service.
type App struct {
	cfg       *config.Config
	providers *Providers

	store    catalog.Store
	metrics  *observe.Metrics
	level    *slog.LevelVar
	api      *server.Server
	handler  http.Handler
	listener net.Listener
	httpSrv  *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a catalog store instead of opening one from config. The
// caller keeps ownership: Shutdown does not close it.
func WithStore(s catalog.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects the metrics recorder. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevel hands New the level variable of the process logger so that
// Reload can change verbosity in place.
func WithLogLevel(v *slog.LevelVar) Option {
	return func(a *App) { a.level = v }
}

// WithListener makes Run serve on l instead of listening on
// cfg.Server.ListenAddr.
func WithListener(l net.Listener) Option {
	return func(a *App) { a.listener = l }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). cfg should come
// from [config.Load] or [config.Default].
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
	}

	// ── 1. Catalog store ─────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}

	// ── 2. Default song ──────────────────────────────────────────────────
	if err := a.seed(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: %w", err)
	}

	// ── 3. HTTP handler ──────────────────────────────────────────────────
	a.initHandler()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initStore opens the catalog backend selected by cfg.Catalog.Driver.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	switch a.cfg.Catalog.Driver {
	case config.DriverPostgres:
		if a.cfg.Catalog.PostgresDSN == "" {
			return errors.New("catalog.postgres_dsn is required for the postgres driver")
		}
		s, err := postgres.NewStore(ctx, a.cfg.Catalog.PostgresDSN)
		if err != nil {
			return err
		}
		a.store = s
	case config.DriverSQLite:
		s, err := sqlite.Open(a.cfg.Catalog.SQLitePath)
		if err != nil {
			return err
		}
		a.store = s
	case config.DriverMemory, "":
		a.store = catalog.NewMemStore()
	default:
		return fmt.Errorf("unknown catalog driver %q", a.cfg.Catalog.Driver)
	}

	a.closers = append(a.closers, a.store.Close)
	slog.Info("catalog opened", "driver", a.cfg.Catalog.Driver)
	return nil
}

// seed writes the built-in song with timing generated from the current
// timing config.
func (a *App) seed(ctx context.Context) error {
	im := setup.New(a.store, nil, a.cfg.Server.SongsDir,
		setup.WithSynthesizer(lyrics.NewSynthesizer(a.cfg.Timing)),
	)
	if _, err := im.SeedDefault(ctx); err != nil {
		return err
	}
	return nil
}

// initHandler builds the API server and mounts health and metrics routes
// next to it.
func (a *App) initHandler() {
	a.api = server.New(a.store, a.providers.STT, a.cfg.Server.SongsDir,
		server.WithMetrics(a.metrics),
		server.WithMaxUploadBytes(a.cfg.Server.MaxUploadBytes),
		server.WithLanguage(a.cfg.STT.Language),
		server.WithEngine(scoring.NewEngine(a.cfg.Scoring.EngineConfig())),
	)

	checkers := []health.Checker{health.PingChecker("catalog", a.store)}
	if br, ok := a.providers.STT.(breakerReporter); ok {
		checkers = append(checkers, health.BreakerChecker("stt", br.States))
	}
	health.New(checkers...).Register(a.api.Mux())
	a.api.Handle("GET /metrics", observe.MetricsHandler())

	a.handler = observe.Middleware(a.metrics)(a.api)
}

// Handler returns the fully assembled HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP (or HTTPS when cfg.Server.TLS is set) and blocks until ctx
// is cancelled. When ctx is done, Run returns context.Canceled (or the
// underlying cause). A listener failure is returned immediately.
func (a *App) Run(ctx context.Context) error {
	ln := a.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.cfg.Server.ListenAddr)
		if err != nil {
			return fmt.Errorf("app: listen %s: %w", a.cfg.Server.ListenAddr, err)
		}
	}

	a.httpSrv = &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpSrv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpSrv.Serve(ln)
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("app running", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	}
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies the hot-reloadable parts of a config change. It is meant
// to be passed to [config.NewWatcher].
func (a *App) Reload(_ *config.Config, next *config.Config, d config.ConfigDiff) {
	if d.LogLevelChanged {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.ScoringChanged {
		a.api.SetEngine(scoring.NewEngine(next.Scoring.EngineConfig()))
		slog.Info("scoring engine reloaded", "fuzzy", next.Scoring.FuzzyEnabled())
	}
	if d.TimingChanged {
		a.cfg.Timing = next.Timing
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.seed(ctx); err != nil {
			slog.Warn("re-seeding default song failed", "err", err)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// SlogLevel converts a config log level to a [slog.Level]. Unknown values
// map to Info.
func SlogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the HTTP server, then runs the closers in init order. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if a.httpSrv != nil {
			if err := a.httpSrv.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll runs the closers registered so far after a failed New.
func (a *App) closeAll() {
	for _, c := range a.closers {
		_ = c()
	}
}
