// Package health provides the liveness and readiness endpoints of the
// lidroute server.
//
//   - /healthz answers 200 while the process can serve HTTP.
//   - /readyz answers 200 only when every required [Checker] passes.
//     Optional checkers are reported but never fail readiness, which suits
//     lexicon sources that the router can run without.
//
// Responses are JSON objects with a top-level "status" field ("ok",
// "degraded" or "fail") and a "checks" map with the result of each checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Status values of the readiness response.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// Checker is a named readiness check.
type Checker struct {
	// Name labels the check in the JSON response (e.g. "classifier").
	Name string

	// Check returns nil when the dependency is healthy. It must respect
	// context cancellation.
	Check func(ctx context.Context) error

	// Optional checkers degrade the status instead of failing it.
	Optional bool
}

// Pinger is implemented by dependencies that can be pinged, such as lexicon
// stores and HTTP classifier backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts p into a [Checker].
func PingChecker(name string, p Pinger, optional bool) Checker {
	return Checker{Name: name, Check: p.Ping, Optional: optional}
}

// ErrClassifierNotLoaded is reported by [ClassifierChecker] when the router
// runs without a classifier.
var ErrClassifierNotLoaded = errors.New("classifier not loaded")

// ClassifierChecker fails while loaded reports false. loaded is called on
// every check so it can follow configuration reloads.
func ClassifierChecker(loaded func() bool) Checker {
	return Checker{
		Name: "classifier",
		Check: func(context.Context) error {
			if !loaded() {
				return ErrClassifierNotLoaded
			}
			return nil
		},
	}
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. The checker list may be replaced at
// runtime with [Handler.SetCheckers].
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
}

// New creates a [Handler] that evaluates checkers on each /readyz request.
func New(checkers ...Checker) *Handler {
	h := &Handler{}
	h.SetCheckers(checkers...)
	return h
}

// SetCheckers replaces the registered checkers.
func (h *Handler) SetCheckers(checkers ...Checker) {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	h.mu.Lock()
	h.checkers = c
	h.mu.Unlock()
}

// Healthz is the liveness check.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: StatusOK})
}

// Readyz runs all checkers concurrently, each with a [checkTimeout] deadline
// derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checkers := h.checkers
	h.mu.RUnlock()

	errs := make([]error, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			errs[i] = c.Check(ctx)
		})
	}
	wg.Wait()

	res := result{Status: StatusOK, Checks: make(map[string]string, len(checkers))}
	for i, c := range checkers {
		if errs[i] == nil {
			res.Checks[c.Name] = "ok"
			continue
		}
		res.Checks[c.Name] = "fail: " + errs[i].Error()
		switch {
		case !c.Optional:
			res.Status = StatusFail
		case res.Status == StatusOK:
			res.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if res.Status == StatusFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
