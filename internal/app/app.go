// Package app wires all ramble subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run starts recovery, the event worker, and the HTTP listener,
// and Shutdown tears everything down in order.
//
// For testing, inject in-memory implementations via functional options
// (WithStore, WithCorrectionStores, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashishact/ramble/internal/api"
	"github.com/ashishact/ramble/internal/config"
	"github.com/ashishact/ramble/internal/correction"
	"github.com/ashishact/ramble/internal/extract"
	"github.com/ashishact/ramble/internal/health"
	"github.com/ashishact/ramble/internal/observe"
	"github.com/ashishact/ramble/internal/pipeline"
	"github.com/ashishact/ramble/internal/pipeline/observers"
	"github.com/ashishact/ramble/internal/resolve"
	"github.com/ashishact/ramble/internal/store"
	pgstore "github.com/ashishact/ramble/internal/store/postgres"
	"github.com/ashishact/ramble/internal/vocab"
	"github.com/ashishact/ramble/pkg/provider/llm"
)

// App owns all subsystem lifetimes and drives the ramble pipeline.
type App struct {
	cfg  *config.Config
	log  *slog.Logger
	chat *llm.Chat

	pool       *pgxpool.Pool
	store      store.Store
	corrStore  correction.Store
	learned    correction.LearnedStore
	vocabStore vocab.Store

	engine   *correction.Engine
	vocabSvc *vocab.Service

	bus      *pipeline.Bus
	handlers *pipeline.Handlers
	worker   *pipeline.Worker

	extraObservers []observers.Observer

	httpServer *http.Server
	stopWorker func()

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a program store instead of creating one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithCorrectionStores injects correction stores instead of deriving them
// from the storage config.
func WithCorrectionStores(s correction.Store, l correction.LearnedStore) Option {
	return func(a *App) {
		a.corrStore = s
		a.learned = l
	}
}

// WithVocabularyStore injects a vocabulary store instead of deriving one
// from the storage config.
func WithVocabularyStore(s vocab.Store) Option {
	return func(a *App) { a.vocabStore = s }
}

// WithObservers registers additional observers alongside the built-in set.
func WithObservers(obs ...observers.Observer) Option {
	return func(a *App) { a.extraObservers = append(a.extraObservers, obs...) }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The chat router comes
// from main (built from the configured providers); nil means no model is
// available, in which case units are ingested and preprocessed but stay open
// until a provider is configured and the server restarts.
func New(ctx context.Context, cfg *config.Config, chat *llm.Chat, log *slog.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, chat: chat, log: log}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStores(ctx); err != nil {
		return nil, err
	}

	// Correction engine and vocabulary service share the program store's
	// database but own their tables.
	var engineOpts []correction.Option
	if cfg.Correction.LearnedMinScore > 0 {
		engineOpts = append(engineOpts, correction.WithLearnedMinScore(cfg.Correction.LearnedMinScore))
	}
	a.engine = correction.NewEngine(a.corrStore, a.learned, log, engineOpts...)
	a.vocabSvc = vocab.NewService(a.vocabStore, log)

	var resolverOpts []resolve.Option
	if cfg.Vocabulary.MinConfidence > 0 {
		resolverOpts = append(resolverOpts, resolve.WithMatcherOptions(vocab.WithMinConfidence(cfg.Vocabulary.MinConfidence)))
	}
	resolver := resolve.New(a.store, a.vocabSvc, log, resolverOpts...)

	var extractor pipeline.Extractor
	obs := []observers.Observer{
		observers.NewThemeObserver(),
		observers.NewContradictionObserver(),
	}
	if a.chat != nil {
		extractor = extract.New(a.chat, log)
		obs = append(obs, observers.NewReflectionObserver(a.chat))
	}
	obs = append(obs, a.extraObservers...)
	dispatcher := observers.NewDispatcher(a.store, log, obs...)

	spans := pipeline.NewSpanDetector(log, cfg.Pipeline.SpanPatterns)

	var busOpts []pipeline.BusOption
	if cfg.Pipeline.HistorySize > 0 {
		busOpts = append(busOpts, pipeline.WithHistorySize(cfg.Pipeline.HistorySize))
	}
	a.bus = pipeline.NewBus(log, busOpts...)
	a.handlers = pipeline.NewHandlers(a.store, a.bus, a.engine, extractor, resolver, dispatcher, spans, log)

	var workerOpts []pipeline.WorkerOption
	if cfg.Pipeline.MaxConcurrent > 0 {
		workerOpts = append(workerOpts, pipeline.WithMaxConcurrent(cfg.Pipeline.MaxConcurrent))
	}
	a.worker = pipeline.NewWorker(a.bus, a.handlers, log, workerOpts...)

	a.httpServer = a.buildHTTPServer()
	return a, nil
}

// initStores connects the storage backends. The program store, correction
// stores, and vocabulary store share a single pgx pool when a DSN is
// configured; otherwise each falls back to its in-memory implementation.
func (a *App) initStores(ctx context.Context) error {
	dsn := a.cfg.Storage.PostgresDSN

	if dsn != "" && (a.store == nil || a.corrStore == nil || a.vocabStore == nil) {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("app: connect postgres: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
	}

	if a.store == nil {
		if a.pool != nil {
			pg := pgstore.New(a.pool)
			if err := pg.Migrate(ctx); err != nil {
				return fmt.Errorf("app: migrate program store: %w", err)
			}
			a.store = pg
		} else {
			a.store = store.NewMemStore()
		}
	}

	if a.corrStore == nil || a.learned == nil {
		if a.pool != nil {
			cs := correction.NewPostgresStore(a.pool)
			if err := cs.Migrate(ctx); err != nil {
				return fmt.Errorf("app: migrate correction store: %w", err)
			}
			a.corrStore = cs
			a.learned = correction.NewPostgresLearnedStore(a.pool)
		} else {
			a.corrStore = correction.NewMemStore()
			a.learned = correction.NewMemLearnedStore()
		}
	}

	if a.vocabStore == nil {
		if a.pool != nil {
			vs := vocab.NewPostgresStore(a.pool)
			if err := vs.Migrate(ctx); err != nil {
				return fmt.Errorf("app: migrate vocabulary store: %w", err)
			}
			a.vocabStore = vs
		} else {
			a.vocabStore = vocab.NewMemStore()
		}
	}

	return nil
}

// buildHTTPServer assembles the API, health, and metrics routes behind the
// observability middleware.
func (a *App) buildHTTPServer() *http.Server {
	mux := http.NewServeMux()

	api.New(a.store, a.handlers, a.log).Register(mux)

	checkers := []health.Checker{health.LLM(a.chat != nil)}
	if a.pool != nil {
		checkers = append(checkers, health.Postgres(a.pool))
	}
	health.New(checkers...).Register(mux)

	handler := observe.Middleware(observe.DefaultMetrics())(mux)

	return &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ─── Run / Shutdown ──────────────────────────────────────────────────────────

// Handlers exposes the pipeline entry point, mainly for tests and embedding.
func (a *App) Handlers() *pipeline.Handlers { return a.handlers }

// Bus exposes the event bus for subscribers outside the pipeline.
func (a *App) Bus() *pipeline.Bus { return a.bus }

// Store exposes the program store for read paths.
func (a *App) Store() store.Store { return a.store }

// Run starts the event worker, recovers interrupted units, and serves HTTP
// until ctx is cancelled or the listener fails. The worker must be
// subscribed before recovery so the events a resumed task emits drive the
// unit through the remaining stages instead of landing only in history.
func (a *App) Run(ctx context.Context) error {
	a.stopWorker = a.worker.Start(ctx)
	if err := a.worker.Recover(ctx); err != nil {
		return fmt.Errorf("app: recovery: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", "addr", a.httpServer.Addr)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errc:
		return fmt.Errorf("app: http server: %w", err)
	}
}

// Shutdown stops the worker, drains the HTTP server, and closes storage.
// Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		if a.stopWorker != nil {
			a.stopWorker()
		}
		if err := a.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: http shutdown: %w", err))
		}
		for _, c := range a.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
