// Package api is the HTTP surface of lidroute.
//
// Routes:
//
//	POST /v1/route        {"text": "..."}            -> types.Result
//	POST /v1/route/batch  {"texts": ["...", ...]}    -> {"results": [...]}
//	GET  /v1/languages                               -> registry and route keys
//	POST /v1/inspect      {"text": "...", "lang": ""} -> token reports
//	GET  /v1/stream       WebSocket, one input per message
//	     /mcp             MCP streamable HTTP (optional)
//	GET  /healthz, /readyz, /metrics
//
// A request whose input cannot be routed still gets 200 with an error status
// in the result body. Non-2xx codes are reserved for malformed requests and
// exhausted deadlines.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/lidroute/internal/health"
	"github.com/MrWong99/lidroute/internal/mcp"
	"github.com/MrWong99/lidroute/internal/observe"
	"github.com/MrWong99/lidroute/internal/router"
)

const (
	// DefaultRequestTimeout bounds every request when no timeout is set.
	DefaultRequestTimeout = 5 * time.Second

	// DefaultBatchLimit caps batch size when the backend reports none.
	DefaultBatchLimit = 256

	// maxBodyBytes caps request bodies.
	maxBodyBytes = 1 << 20

	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
)

// Backend supplies the live router and limits. Implementations must be safe
// for concurrent use.
type Backend interface {
	Router() *router.Router

	// BatchLimit is the maximum number of texts in one batch request.
	BatchLimit() int
}

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMetrics records HTTP and stream metrics to m instead of
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRequestTimeout sets the per-request timeout. For streams it applies to
// each message.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHealth mounts the liveness and readiness checks of h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metricsHandler = h
	}
}

// WithMCP mounts the MCP tool server at /mcp. version is reported to MCP
// clients.
func WithMCP(version string) Option {
	return func(s *Server) {
		s.mcpVersion = version
		s.mcpEnabled = true
	}
}

// WithAllowedOrigins sets the origin patterns accepted for WebSocket
// upgrades, in addition to same-origin requests.
func WithAllowedOrigins(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = patterns
	}
}

// Server routes HTTP requests to the current router of a [Backend].
type Server struct {
	backend        Backend
	metrics        *observe.Metrics
	timeout        time.Duration
	health         *health.Handler
	metricsHandler http.Handler
	mcpEnabled     bool
	mcpVersion     string
	originPatterns []string

	handler http.Handler
}

// New builds a Server for b.
func New(b Backend, opts ...Option) *Server {
	s := &Server{
		backend: b,
		timeout: DefaultRequestTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/route", s.handleRoute)
	mux.HandleFunc("POST /v1/route/batch", s.handleBatch)
	mux.HandleFunc("GET /v1/languages", s.handleLanguages)
	mux.HandleFunc("POST /v1/inspect", s.handleInspect)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	if s.mcpEnabled {
		mux.Handle("/mcp", mcp.Handler(mcp.NewServer(b, s.mcpVersion)))
	}
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	s.handler = observe.Middleware(s.metrics)(requestID(mux))
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) batchLimit() int {
	if n := s.backend.BatchLimit(); n > 0 {
		return n
	}
	return DefaultBatchLimit
}

// withTimeout derives the per-request context.
func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

type ctxKey struct{}

// requestID assigns every request an ID, reusing a well-formed incoming
// X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// logger returns the trace-aware logger enriched with the request ID.
func logger(ctx context.Context) *slog.Logger {
	l := observe.Logger(ctx)
	if id := RequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	return l
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v before touching the response so an encoding failure
// can still be reported as a 500.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger(r.Context()).Error("api: encode response", "path", r.URL.Path, "err", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "internal error: response not encodable"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	body = append(body, '\n')
	if _, err := w.Write(body); err != nil {
		logger(r.Context()).Debug("api: write response", "path", r.URL.Path, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// decode reads a JSON request body into v. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}
