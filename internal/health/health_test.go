package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func readyz(t *testing.T, h *Handler, ctx context.Context) (int, result) {
	t.Helper()
	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func ok(context.Context) error { return nil }

func failing(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "broken", Check: failing("down")})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if body.Status != StatusOK {
		t.Errorf("status = %q, want %q", body.Status, StatusOK)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
			wantChecks: map[string]string{},
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "classifier", Check: ok},
				{Name: "lexicon:postgres", Check: ok, Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
			wantChecks: map[string]string{"classifier": "ok", "lexicon:postgres": "ok"},
		},
		{
			name: "required fails",
			checkers: []Checker{
				{Name: "classifier", Check: failing("not loaded")},
				{Name: "lexicon:redis", Check: ok, Optional: true},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"classifier": "fail: not loaded", "lexicon:redis": "ok"},
		},
		{
			name: "optional fails",
			checkers: []Checker{
				{Name: "classifier", Check: ok},
				{Name: "lexicon:redis", Check: failing("connection refused"), Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"classifier": "ok", "lexicon:redis": "fail: connection refused"},
		},
		{
			name: "required and optional fail",
			checkers: []Checker{
				{Name: "lexicon:redis", Check: failing("timeout"), Optional: true},
				{Name: "classifier", Check: failing("not loaded")},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"classifier": "fail: not loaded", "lexicon:redis": "fail: timeout"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, body := readyz(t, New(tt.checkers...), context.Background())
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if len(body.Checks) != len(tt.wantChecks) {
				t.Errorf("checks = %v, want %v", body.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("check %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestClassifierChecker_FollowsReloads(t *testing.T) {
	t.Parallel()
	var loaded atomic.Bool
	h := New(ClassifierChecker(loaded.Load))

	code, body := readyz(t, h, context.Background())
	if code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503 while unloaded", code)
	}
	if got := body.Checks["classifier"]; got != "fail: "+ErrClassifierNotLoaded.Error() {
		t.Errorf("classifier check = %q", got)
	}

	loaded.Store(true)
	if code, _ := readyz(t, h, context.Background()); code != http.StatusOK {
		t.Errorf("code = %d, want 200 once loaded", code)
	}
}

func TestPingChecker(t *testing.T) {
	t.Parallel()
	c := PingChecker("lexicon:redis", pingerFunc(failing("refused")), true)
	if c.Name != "lexicon:redis" || !c.Optional {
		t.Errorf("checker = %+v", c)
	}
	if err := c.Check(context.Background()); err == nil || err.Error() != "refused" {
		t.Errorf("Check() = %v, want refused", err)
	}
}

func TestSetCheckers(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "a", Check: failing("x")})
	h.SetCheckers(Checker{Name: "b", Check: ok})

	code, body := readyz(t, h, context.Background())
	if code != http.StatusOK {
		t.Errorf("code = %d, want 200", code)
	}
	if _, found := body.Checks["a"]; found {
		t.Error("replaced checker still reported")
	}
}

func TestRegister_RoutesWork(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	New(Checker{Name: "test", Check: ok}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestReadyz_RespectsContextCancellation(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if code, _ := readyz(t, h, ctx); code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
}
