package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrWong99/lidroute/internal/config"
	"github.com/MrWong99/lidroute/internal/health"
	"github.com/MrWong99/lidroute/internal/lexstore"
	"github.com/MrWong99/lidroute/internal/lexstore/file"
	"github.com/MrWong99/lidroute/internal/lexstore/postgres"
	redisstore "github.com/MrWong99/lidroute/internal/lexstore/redis"
	"github.com/MrWong99/lidroute/internal/validation"
)

// lexicon is the set of lexicon sources opened for one configuration.
type lexicon struct {
	sources []lexstore.Source
	closers []func() error
	strict  bool
}

// openLexicon opens every source named in cfg, in the order file, postgres,
// redis. Unless cfg.StrictSources is set, a source that cannot be opened is
// logged and left out.
func openLexicon(ctx context.Context, cfg config.LexiconConfig) (*lexicon, error) {
	l := &lexicon{strict: cfg.StrictSources}

	if cfg.File != "" {
		l.sources = append(l.sources, file.New(cfg.File))
	}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err := l.skipOrFail("postgres", err); err != nil {
			return nil, err
		}
		if store != nil {
			l.sources = append(l.sources, store)
			l.closers = append(l.closers, func() error {
				store.Close()
				return nil
			})
		}
	}

	if r := cfg.Redis; r != nil {
		store, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
		})
		if err := l.skipOrFail("redis", err); err != nil {
			return nil, err
		}
		if store != nil {
			l.sources = append(l.sources, store)
			l.closers = append(l.closers, store.Close)
		}
	}

	return l, nil
}

// skipOrFail handles an open error. In strict mode it closes what was opened
// so far and returns the error.
func (l *lexicon) skipOrFail(name string, err error) error {
	if err == nil {
		return nil
	}
	if l.strict {
		_ = l.Close()
		return fmt.Errorf("app: open lexicon source %s: %w", name, err)
	}
	slog.Warn("lexicon source unavailable, continuing without it", "source", name, "err", err)
	return nil
}

// registry loads all sources and merges them over the built-in bundles.
func (l *lexicon) registry(ctx context.Context) (*validation.Registry, error) {
	base := validation.DefaultRegistry()
	if len(l.sources) == 0 {
		return base, nil
	}

	overlays, err := lexstore.LoadAll(ctx, l.sources...)
	if err != nil {
		if l.strict {
			return nil, fmt.Errorf("app: load lexicon: %w", err)
		}
		slog.Warn("some lexicon sources failed to load", "err", err)
	}
	slog.Info("lexicon overlays loaded", "sources", len(l.sources), "languages", lexstore.Codes(overlays))
	return base.WithOverlays(overlays), nil
}

// checkers returns a readiness check for each source that can be pinged.
// Checks are optional unless the sources are strict.
func (l *lexicon) checkers() []health.Checker {
	var out []health.Checker
	for _, s := range l.sources {
		if p, ok := s.(health.Pinger); ok {
			out = append(out, health.PingChecker("lexicon:"+s.Name(), p, !l.strict))
		}
	}
	return out
}

// Close releases every opened connection.
func (l *lexicon) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c())
	}
	l.closers = nil
	return errors.Join(errs...)
}
