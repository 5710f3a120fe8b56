// Package router is the orchestration layer: for each input it runs language
// identification, picks the validation pipeline for the detected language and
// assembles the final [types.Result].
//
// A Router is built once and is read-only afterwards, so one instance serves
// any number of concurrent requests. Configuration reloads build a new Router
// and swap it in; they never mutate a live one.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lidroute/internal/langid"
	"github.com/MrWong99/lidroute/internal/observe"
	"github.com/MrWong99/lidroute/internal/validation"
	provider "github.com/MrWong99/lidroute/pkg/provider/langid"
	"github.com/MrWong99/lidroute/pkg/types"
)

// DefaultMaxConcurrency bounds the number of inputs [Router.ProcessBatch]
// processes at once.
const DefaultMaxConcurrency = 8

// ErrNoPipelines is returned by [New] when no validation pipeline is given.
var ErrNoPipelines = errors.New("router: at least one validation pipeline is required")

// Option is a functional option for configuring a [Router].
type Option func(*Router)

// WithMetrics records routing metrics to m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithMaxConcurrency sets the worker limit for [Router.ProcessBatch]. Values
// below 1 are ignored.
func WithMaxConcurrency(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.maxConcurrency = n
		}
	}
}

// Router owns one [langid.Identifier] and a fixed set of validation pipelines.
type Router struct {
	identifier     *langid.Identifier
	pipelines      map[string]*validation.Pipeline
	codes          []string
	fallback       *validation.Pipeline
	metrics        *observe.Metrics
	maxConcurrency int
}

// New builds a Router. The first pipeline is the catch-all used for every
// detected language that has no pipeline of its own. A nil identifier is
// treated as an identifier without a classifier.
func New(id *langid.Identifier, pipelines []*validation.Pipeline, opts ...Option) (*Router, error) {
	if len(pipelines) == 0 {
		return nil, ErrNoPipelines
	}
	if id == nil {
		id = langid.New(nil)
	}
	r := &Router{
		identifier:     id,
		pipelines:      make(map[string]*validation.Pipeline, len(pipelines)),
		fallback:       pipelines[0],
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, p := range pipelines {
		if p == nil {
			return nil, fmt.Errorf("router: nil pipeline")
		}
		if _, dup := r.pipelines[p.Code()]; dup {
			return nil, fmt.Errorf("router: duplicate pipeline for %q", p.Code())
		}
		r.pipelines[p.Code()] = p
		r.codes = append(r.codes, p.Code())
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r, nil
}

// NewDefault builds a Router over c with the built-in hi/kn/te tables. c may
// be nil.
func NewDefault(c provider.Classifier, threshold float64, opts ...Option) *Router {
	id := langid.New(c, langid.WithThreshold(threshold))
	pipelines := validation.NewPipelines(validation.DefaultRegistry(), validation.SupportedCodes)
	r, err := New(id, pipelines, opts...)
	if err != nil {
		// SupportedCodes is a non-empty constant list.
		panic(err)
	}
	return r
}

// Identifier returns the router's language identifier.
func (r *Router) Identifier() *langid.Identifier {
	return r.identifier
}

// Codes returns the languages that have a dedicated pipeline, default first.
func (r *Router) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// Pipeline returns the pipeline for code, or the catch-all pipeline when code
// has none.
func (r *Router) Pipeline(code string) *validation.Pipeline {
	if p, ok := r.pipelines[code]; ok {
		return p
	}
	return r.fallback
}

// Process routes one input. It never returns an error: every failure is
// reported through the Status and Failure fields of the result.
func (r *Router) Process(ctx context.Context, text string) (res types.Result) {
	if text == "" || !utf8.ValidString(text) {
		r.metrics.RecordFailure(ctx, string(types.FailureInput))
		res = types.ErrorResult(text, types.FailureInput, "invalid input")
		res.Status = types.StatusInvalidInput
		return res
	}

	ctx, span := observe.StartSpan(ctx, observe.SpanProcess)
	defer span.End()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprint(rec)
			span.SetStatus(codes.Error, msg)
			observe.Logger(ctx).Error("routing failed", "panic", msg)
			r.metrics.RecordFailure(ctx, string(types.FailureOrchestration))
			res = types.ErrorResult(text, types.FailureOrchestration, msg)
		}
	}()

	if err := ctx.Err(); err != nil {
		r.metrics.RecordFailure(ctx, string(types.FailureOrchestration))
		return types.ErrorResult(text, types.FailureOrchestration, err.Error())
	}

	ident := r.identifier.Detect(ctx, text)
	if ident.Failure != nil {
		r.metrics.RecordFailure(ctx, string(ident.Failure.Kind))
	}

	p := r.Pipeline(ident.Code)
	cleaned := p.Process(text)

	res = types.Result{
		Input:       text,
		CleanedText: cleaned,
		LangCode:    ident.Code,
		LangName:    ident.Name,
		Confidence:  ident.Confidence,
		RouteKey:    ident.RouteKey,
		Status:      types.StatusSuccess,
	}

	span.SetAttributes(observe.RouteAttrs(res.LangCode, string(res.RouteKey), p.Code())...)
	r.metrics.ProcessDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("route_key", string(res.RouteKey))))
	r.metrics.RecordRouted(ctx, string(res.RouteKey), res.LangCode)
	return res
}

// ProcessBatch routes every text concurrently and returns the results in
// input order. The returned error is non-nil only when ctx ends before all
// inputs were processed; the slots of unprocessed inputs then hold error
// results.
func (r *Router) ProcessBatch(ctx context.Context, texts []string) ([]types.Result, error) {
	results := make([]types.Result, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)

	for i, text := range texts {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(texts); j++ {
				results[j] = types.ErrorResult(texts[j], types.FailureOrchestration, err.Error())
			}
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = types.ErrorResult(text, types.FailureOrchestration, err.Error())
				return err
			}
			results[i] = r.Process(gctx, text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("router: batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("router: batch: %w", err)
	}
	return results, nil
}

// Inspect runs the pipeline for lang over text and reports, token by token,
// how the cleaned text relates to the lexicon. An empty lang uses the
// detected language.
func (r *Router) Inspect(ctx context.Context, text, lang string) (code string, cleaned string, report []validation.TokenReport) {
	if lang == "" {
		lang = r.identifier.Detect(ctx, text).Code
	}
	p := r.Pipeline(lang)
	cleaned = p.Process(text)
	return p.Code(), cleaned, p.Validator().Inspect(cleaned)
}
