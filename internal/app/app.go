// Package app wires the lidroute subsystems into a running server.
//
// New builds the classifier chain, opens the lexicon sources and constructs
// the first router. Run serves the HTTP API until its context ends, and
// Shutdown drains the server and closes every source. Reload applies a
// [config.ConfigDiff] from the config watcher: a changed log level is applied
// in place, anything that affects routing builds a fresh router that is
// swapped in atomically.
//
// For testing, inject doubles via functional options ([WithClassifier],
// [WithLexiconSources], ...). When an option is not provided, New creates
// the real implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/lidroute/internal/api"
	"github.com/MrWong99/lidroute/internal/config"
	"github.com/MrWong99/lidroute/internal/health"
	"github.com/MrWong99/lidroute/internal/langid"
	"github.com/MrWong99/lidroute/internal/lexstore"
	"github.com/MrWong99/lidroute/internal/observe"
	"github.com/MrWong99/lidroute/internal/router"
	"github.com/MrWong99/lidroute/internal/validation"
	provider "github.com/MrWong99/lidroute/pkg/provider/langid"
)

// reloadTimeout bounds opening and loading lexicon sources during a reload.
const reloadTimeout = 30 * time.Second

// App owns the router and every subsystem it depends on.
type App struct {
	version  string
	registry *config.Registry
	metrics  *observe.Metrics
	level    *slog.LevelVar

	injectedClassifier *Classifier
	injectedSources    []lexstore.Source

	// mu serialises reloads and guards the fields below it.
	mu         sync.Mutex
	cfg        *config.Config
	classifier Classifier
	lex        *lexicon

	router     atomic.Pointer[router.Router]
	batchLimit atomic.Int64

	health  *health.Handler
	api     *api.Server
	server  *http.Server
	servErr chan error

	stopOnce sync.Once
}

// Compile-time check that App can back the API server.
var _ api.Backend = (*App)(nil)

// Option is a functional option for New.
type Option func(*App)

// WithRegistry uses reg to construct classifiers instead of a registry with
// the built-in backends.
func WithRegistry(reg *config.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithMetrics records metrics to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets Reload change the level of the handler that owns lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithClassifier injects a classifier instead of building one from config.
// Classifier config changes are then ignored by Reload.
func WithClassifier(c provider.Classifier, name string) Option {
	return func(a *App) {
		a.injectedClassifier = &Classifier{
			Classifier: c,
			Name:       name,
			Backends:   []NamedClassifier{{Name: name, Classifier: c}},
		}
	}
}

// WithLexiconSources injects lexicon sources instead of opening the ones
// named in config. Lexicon config changes then only reload these sources.
func WithLexiconSources(sources ...lexstore.Source) Option {
	return func(a *App) { a.injectedSources = sources }
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New creates an App from cfg. A classifier that cannot be built is fatal.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, version: "dev"}
	for _, o := range opts {
		o(a)
	}
	if a.registry == nil {
		a.registry = config.NewRegistry()
		RegisterBuiltinClassifiers(a.registry)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
		a.level.Set(cfg.Server.LogLevel.SlogLevel())
	}

	// ── 1. Classifier ────────────────────────────────────────────────────
	cls, err := a.buildClassifier(cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("app: init classifier: %w", err)
	}
	a.classifier = cls
	if cls.Classifier == nil {
		slog.Warn("no classifier configured; every input will route to the fallback service")
	} else {
		slog.Info("classifier ready", "name", cls.Name, "backends", len(cls.Backends))
	}

	// ── 2. Lexicon sources ───────────────────────────────────────────────
	lex, err := a.openLexicon(ctx, cfg.Lexicon)
	if err != nil {
		return nil, fmt.Errorf("app: init lexicon: %w", err)
	}
	a.lex = lex

	// ── 3. Router ────────────────────────────────────────────────────────
	rt, err := a.buildRouter(ctx, cfg, cls, lex)
	if err != nil {
		_ = lex.Close()
		return nil, fmt.Errorf("app: init router: %w", err)
	}
	a.router.Store(rt)
	a.batchLimit.Store(int64(cfg.Batch.MaxItems))

	// ── 4. HTTP surface ──────────────────────────────────────────────────
	a.health = health.New(a.checkers()...)
	apiOpts := []api.Option{
		api.WithMetrics(a.metrics),
		api.WithRequestTimeout(cfg.Server.RequestTimeout),
		api.WithHealth(a.health),
		api.WithMetricsHandler(promhttp.Handler()),
	}
	if cfg.Server.MCPEnabled {
		apiOpts = append(apiOpts, api.WithMCP(a.version))
	}
	a.api = api.New(a, apiOpts...)
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Router returns the live router.
func (a *App) Router() *router.Router {
	return a.router.Load()
}

// BatchLimit returns the configured maximum batch size.
func (a *App) BatchLimit() int {
	return int(a.batchLimit.Load())
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.api
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// ─── Build helpers ───────────────────────────────────────────────────────────

func (a *App) buildClassifier(cfg config.ClassifierConfig) (Classifier, error) {
	if a.injectedClassifier != nil {
		return *a.injectedClassifier, nil
	}
	return BuildClassifier(cfg, a.registry)
}

func (a *App) openLexicon(ctx context.Context, cfg config.LexiconConfig) (*lexicon, error) {
	if a.injectedSources != nil {
		return &lexicon{sources: a.injectedSources, strict: cfg.StrictSources}, nil
	}
	return openLexicon(ctx, cfg)
}

// buildRouter loads the lexicon and builds a router over it.
func (a *App) buildRouter(ctx context.Context, cfg *config.Config, cls Classifier, lex *lexicon) (*router.Router, error) {
	reg, err := lex.registry(ctx)
	if err != nil {
		return nil, err
	}
	idOpts := []langid.Option{
		langid.WithThreshold(cfg.Classifier.EffectiveThreshold()),
		langid.WithMetrics(a.metrics),
	}
	if cls.Name != "" {
		idOpts = append(idOpts, langid.WithClassifierName(cls.Name))
	}
	id := langid.New(cls.Classifier, idOpts...)
	return router.New(id, validation.NewPipelines(reg, validation.SupportedCodes),
		router.WithMetrics(a.metrics),
		router.WithMaxConcurrency(cfg.Batch.MaxConcurrency),
	)
}

// checkers returns the readiness checks for the current subsystems.
func (a *App) checkers() []health.Checker {
	out := []health.Checker{health.ClassifierChecker(func() bool {
		return a.Router().Identifier().Loaded()
	})}
	for _, b := range a.classifier.Backends {
		if p, ok := b.Classifier.(health.Pinger); ok {
			// Only the last remaining backend is required for readiness.
			out = append(out, health.PingChecker("classifier:"+b.Name, p, len(a.classifier.Backends) > 1))
		}
	}
	return append(out, a.lex.checkers()...)
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies a configuration change. Its signature matches
// [config.ChangeFunc]. A change that cannot be applied leaves the running
// router untouched.
func (a *App) Reload(_, next *config.Config, diff config.ConfigDiff) {
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	if err := a.apply(ctx, next, diff); err != nil {
		slog.Error("config reload failed, keeping previous router", "err", err)
		a.metrics.RecordConfigReload(ctx, "error")
		return
	}
	a.metrics.RecordConfigReload(ctx, "ok")
}

// ReloadFailed records a reload the watcher rejected. Its signature matches
// [config.WithErrorHandler].
func (a *App) ReloadFailed(error) {
	a.metrics.RecordConfigReload(context.Background(), "error")
}

func (a *App) apply(ctx context.Context, next *config.Config, diff config.ConfigDiff) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if diff.LogLevelChanged {
		a.level.Set(diff.NewLogLevel.SlogLevel())
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}

	switch {
	case diff.NeedsRebuild():
		if err := a.rebuild(ctx, next, diff); err != nil {
			return err
		}
	case diff.BatchChanged:
		cur := a.Router()
		pipelines := make([]*validation.Pipeline, 0, len(cur.Codes()))
		for _, code := range cur.Codes() {
			pipelines = append(pipelines, cur.Pipeline(code))
		}
		rt, err := router.New(cur.Identifier(), pipelines,
			router.WithMetrics(a.metrics),
			router.WithMaxConcurrency(next.Batch.MaxConcurrency),
		)
		if err != nil {
			return fmt.Errorf("app: rebuild router: %w", err)
		}
		a.router.Store(rt)
	}

	if diff.BatchChanged {
		a.batchLimit.Store(int64(next.Batch.MaxItems))
	}
	for _, field := range diff.RestartRequired {
		slog.Warn("config change needs a restart to take effect", "field", field)
	}
	a.cfg = next
	return nil
}

// rebuild builds a new router for next and swaps it in. Must be called with
// a.mu held.
func (a *App) rebuild(ctx context.Context, next *config.Config, diff config.ConfigDiff) error {
	cls := a.classifier
	if diff.ClassifierChanged {
		c, err := a.buildClassifier(next.Classifier)
		if err != nil {
			return fmt.Errorf("app: rebuild classifier: %w", err)
		}
		cls = c
	}

	lex := a.lex
	if diff.LexiconChanged {
		l, err := a.openLexicon(ctx, next.Lexicon)
		if err != nil {
			return fmt.Errorf("app: reopen lexicon: %w", err)
		}
		lex = l
	}

	rt, err := a.buildRouter(ctx, next, cls, lex)
	if err != nil {
		if lex != a.lex {
			_ = lex.Close()
		}
		return fmt.Errorf("app: rebuild router: %w", err)
	}

	a.router.Store(rt)
	a.classifier = cls
	if lex != a.lex {
		old := a.lex
		a.lex = lex
		if err := old.Close(); err != nil {
			slog.Warn("closing previous lexicon sources", "err", err)
		}
	}
	a.health.SetCheckers(a.checkers()...)

	slog.Info("router rebuilt",
		"threshold", rt.Identifier().Threshold(),
		"classifier", cls.Name,
		"lexicon_sources", len(lex.sources),
	)
	return nil
}

// ─── Run / Shutdown ──────────────────────────────────────────────────────────

// Run serves the API and blocks until ctx is cancelled or the server fails.
// When ctx is done, Run returns the context error.
func (a *App) Run(ctx context.Context) error {
	a.servErr = make(chan error, 1)
	go func() {
		var err error
		if tls := a.Config().Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		a.servErr <- err
	}()

	slog.Info("app running", "listen_addr", a.server.Addr, "pipelines", a.Router().Codes())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-a.servErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// Shutdown stops the HTTP server and closes the lexicon sources. It respects
// the context deadline for draining in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown error", "err", err)
			shutdownErr = err
		}

		a.mu.Lock()
		lex := a.lex
		a.mu.Unlock()
		if err := lex.Close(); err != nil {
			slog.Warn("lexicon close error", "err", err)
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
