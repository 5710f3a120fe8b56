package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/lidroute/internal/health"
	"github.com/MrWong99/lidroute/internal/observe"
	"github.com/MrWong99/lidroute/internal/router"
	provider "github.com/MrWong99/lidroute/pkg/provider/langid"
	"github.com/MrWong99/lidroute/pkg/provider/langid/mock"
	"github.com/MrWong99/lidroute/pkg/types"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type testBackend struct {
	r     *router.Router
	limit int
}

func (b testBackend) Router() *router.Router { return b.r }
func (b testBackend) BatchLimit() int        { return b.limit }

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func newTestServer(t *testing.T, c provider.Classifier, limit int, opts ...Option) *Server {
	t.Helper()
	m := testMetrics(t)
	rt := router.NewDefault(c, 0.8, router.WithMetrics(m))
	return New(testBackend{r: rt, limit: limit}, append([]Option{WithMetrics(m)}, opts...)...)
}

func labelled(label string, p float64) *mock.Classifier {
	return &mock.Classifier{Predictions: []provider.Prediction{{Label: label, Probability: p}}}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

// ── /v1/route ────────────────────────────────────────────────────────────────

func TestRoute(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		classifier  provider.Classifier
		body        string
		wantCleaned string
		wantRoute   types.RouteKey
		wantStatus  string
	}{
		{
			name:        "hindi",
			classifier:  labelled("__label__hi", 0.95),
			body:        `{"text":"mausm kse hai"}`,
			wantCleaned: "मौसम कैसे है",
			wantRoute:   types.RouteHindi,
			wantStatus:  types.StatusSuccess,
		},
		{
			name:        "kannada",
			classifier:  labelled("__label__kn", 0.91),
			body:        `{"text":"indu havama"}`,
			wantCleaned: "ಇಂದು ಹವಾಮಾನ",
			wantRoute:   types.RouteKannada,
			wantStatus:  types.StatusSuccess,
		},
		{
			name:        "low confidence",
			classifier:  labelled("__label__te", 0.4),
			body:        `{"text":"samya iroju"}`,
			wantCleaned: "సమయం ఈరోజు",
			wantRoute:   types.RouteFallback,
			wantStatus:  types.StatusSuccess,
		},
		{
			name:        "no classifier",
			classifier:  nil,
			body:        `{"text":"  आज   का मौसम कैसे है"}`,
			wantCleaned: "आज का मौसम कैसे है",
			wantRoute:   types.RouteFallback,
			wantStatus:  types.StatusSuccess,
		},
		{
			name:       "empty text",
			classifier: labelled("__label__hi", 0.95),
			body:       `{"text":""}`,
			wantRoute:  types.RouteFallback,
			wantStatus: types.StatusInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, tt.classifier, 0)
			rec := do(t, srv, http.MethodPost, "/v1/route", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body)
			}
			got := decodeBody[types.Result](t, rec)
			if got.CleanedText != tt.wantCleaned {
				t.Errorf("cleaned_text = %q, want %q", got.CleanedText, tt.wantCleaned)
			}
			if got.RouteKey != tt.wantRoute {
				t.Errorf("route_key = %q, want %q", got.RouteKey, tt.wantRoute)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestRoute_BadRequests(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, labelled("__label__hi", 0.9), 0)

	for _, body := range []string{"", "{", `{"text": 5}`, `{"txt":"hello"}`} {
		rec := do(t, srv, http.MethodPost, "/v1/route", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: code = %d, want 400", body, rec.Code)
			continue
		}
		if got := decodeBody[errorResponse](t, rec); got.Error == "" {
			t.Errorf("body %q: empty error message", body)
		}
	}
}

func TestRoute_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, 0)
	if rec := do(t, srv, http.MethodGet, "/v1/route", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d, want 405", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, 0)

	rec := do(t, srv, http.MethodGet, "/v1/languages", "")
	id := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated request id %q is not a uuid", id)
	}

	want := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	req.Header.Set(RequestIDHeader, want)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != want {
		t.Errorf("request id = %q, want propagated %q", got, want)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	req.Header.Set(RequestIDHeader, "not a uuid")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "not a uuid" {
		t.Error("malformed request id was propagated")
	}
}

// ── /v1/route/batch ──────────────────────────────────────────────────────────

func TestBatch(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, labelled("__label__hi", 0.9), 0)

	rec := do(t, srv, http.MethodPost, "/v1/route/batch", `{"texts":["nmste ji","","aaj ka mausm"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200; body %s", rec.Code, rec.Body)
	}
	got := decodeBody[BatchResponse](t, rec)
	if len(got.Results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(got.Results))
	}
	want := []string{"नमस्ते ji", "", "आज का मौसम"}
	for i, w := range want {
		if got.Results[i].CleanedText != w {
			t.Errorf("results[%d].cleaned_text = %q, want %q", i, got.Results[i].CleanedText, w)
		}
	}
	if got.Results[1].Status != types.StatusInvalidInput {
		t.Errorf("results[1].status = %q, want invalid input", got.Results[1].Status)
	}
	if got.Error != "" {
		t.Errorf("error = %q, want none", got.Error)
	}
}

func TestBatch_Limits(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, labelled("__label__hi", 0.9), 2)

	if rec := do(t, srv, http.MethodPost, "/v1/route/batch", `{"texts":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty batch: code = %d, want 400", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/v1/route/batch", `{"texts":["a","b","c"]}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized batch: code = %d, want 413", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec); !strings.Contains(got.Error, "limit of 2") {
		t.Errorf("error = %q", got.Error)
	}
}

func TestBatch_Timeout(t *testing.T) {
	t.Parallel()
	slow := &mock.Classifier{PredictFunc: func(ctx context.Context, _ string) ([]provider.Prediction, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	srv := newTestServer(t, slow, 0, WithRequestTimeout(20*time.Millisecond))

	texts := make([]string, 40)
	for i := range texts {
		texts[i] = fmt.Sprintf("input number %d", i)
	}
	body, _ := json.Marshal(BatchRequest{Texts: texts})

	rec := do(t, srv, http.MethodPost, "/v1/route/batch", string(body))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("code = %d, want 504", rec.Code)
	}
	got := decodeBody[BatchResponse](t, rec)
	if got.Error == "" {
		t.Error("error message missing")
	}
	if len(got.Results) != len(texts) {
		t.Errorf("len(results) = %d, want %d", len(got.Results), len(texts))
	}
}

// ── /v1/languages and /v1/inspect ────────────────────────────────────────────

func TestLanguages(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, labelled("__label__hi", 0.9), 0)

	rec := do(t, srv, http.MethodGet, "/v1/languages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	got := decodeBody[LanguagesResponse](t, rec)
	if len(got.Languages) != 12 {
		t.Errorf("len(languages) = %d, want 12", len(got.Languages))
	}
	if len(got.RouteKeys) != len(types.RouteKeys) {
		t.Errorf("route_keys = %v", got.RouteKeys)
	}
	if strings.Join(got.Pipelines, ",") != "hi,kn,te" || got.DefaultPipeline != "hi" {
		t.Errorf("pipelines = %v default %q", got.Pipelines, got.DefaultPipeline)
	}
	if got.Threshold != 0.8 || !got.ClassifierLoaded {
		t.Errorf("threshold = %v loaded = %v", got.Threshold, got.ClassifierLoaded)
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, labelled("__label__te", 0.9), 0)

	rec := do(t, srv, http.MethodPost, "/v1/inspect", `{"text":"samya Ravi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d; body %s", rec.Code, rec.Body)
	}
	got := decodeBody[InspectResponse](t, rec)
	if got.LangCode != "te" || got.CleanedText != "సమయం Ravi" {
		t.Errorf("inspect = %+v", got)
	}
	if len(got.Tokens) != 2 || got.Tokens[0].Known || got.Tokens[1].Known {
		t.Errorf("tokens = %+v", got.Tokens)
	}

	rec = do(t, srv, http.MethodPost, "/v1/inspect", `{"text":"kl ho","lang":"hi"}`)
	got = decodeBody[InspectResponse](t, rec)
	if got.LangCode != "hi" || got.CleanedText != "कल हो" {
		t.Errorf("inspect with lang = %+v", got)
	}

	if rec := do(t, srv, http.MethodPost, "/v1/inspect", `{"text":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty text: code = %d, want 400", rec.Code)
	}
}

// ── health, metrics, mcp ─────────────────────────────────────────────────────

func TestOptionalMounts(t *testing.T) {
	t.Parallel()
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	srv := newTestServer(t, nil, 0,
		WithHealth(health.New(health.Checker{Name: "classifier", Check: func(context.Context) error { return nil }})),
		WithMetricsHandler(metricsHandler),
	)

	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz code = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("/readyz code = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/metrics", ""); rec.Body.String() != "# metrics" {
		t.Errorf("/metrics body = %q", rec.Body)
	}
	if rec := do(t, srv, http.MethodPost, "/mcp", "{}"); rec.Code != http.StatusNotFound {
		t.Errorf("/mcp without WithMCP: code = %d, want 404", rec.Code)
	}

	bare := newTestServer(t, nil, 0)
	if rec := do(t, bare, http.MethodGet, "/healthz", ""); rec.Code != http.StatusNotFound {
		t.Errorf("/healthz without WithHealth: code = %d, want 404", rec.Code)
	}
}

func TestMCPMounted(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil, 0, WithMCP("test"))

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("initialize code = %d; body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "lidroute") {
		t.Errorf("initialize reply does not name the server: %s", rec.Body)
	}
}

// ── /v1/stream ───────────────────────────────────────────────────────────────

func dialStream(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/stream", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func TestStream(t *testing.T) {
	t.Parallel()
	conn := dialStream(t, newTestServer(t, labelled("__label__hi", 0.93), 0))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	send := func(msg string) {
		t.Helper()
		if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// Plain text, an interim transcript (no reply), then a final one.
	send("mausm kse hai")
	send(`{"text":"aaj","is_final":false}`)
	send(`{"text":"nmste aaj","is_final":true,"speaker_id":"u1"}`)

	var first, second StreamReply
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read first: %v", err)
	}
	if err := wsjson.Read(ctx, conn, &second); err != nil {
		t.Fatalf("read second: %v", err)
	}

	if first.CleanedText != "मौसम कैसे है" || first.RouteKey != types.RouteHindi {
		t.Errorf("first reply = %+v", first)
	}
	if second.CleanedText != "नमस्ते आज" || second.SpeakerID != "u1" {
		t.Errorf("second reply = %+v", second)
	}

	if err := conn.Close(websocket.StatusNormalClosure, "done"); err != nil {
		t.Logf("close: %v", err)
	}
}

func TestStream_RejectsBinary(t *testing.T) {
	t.Parallel()
	conn := dialStream(t, newTestServer(t, nil, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := conn.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusUnsupportedData {
		t.Errorf("close status = %v, want %v (err %v)", got, websocket.StatusUnsupportedData, err)
	}
}

func TestDecodeStreamMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in       string
		wantText string
		wantOK   bool
	}{
		{in: "plain text", wantText: "plain text", wantOK: true},
		{in: `{"text":"final","is_final":true}`, wantText: "final", wantOK: true},
		{in: `{"text":"interim","is_final":false}`, wantText: "interim", wantOK: false},
		{in: `{"text":"no flag"}`, wantText: "no flag", wantOK: false},
		{in: `{not json`, wantText: `{not json`, wantOK: true},
	}
	for _, tt := range tests {
		tr, ok := decodeStreamMessage([]byte(tt.in))
		if tr.Text != tt.wantText || ok != tt.wantOK {
			t.Errorf("decodeStreamMessage(%q) = (%q, %v), want (%q, %v)", tt.in, tr.Text, ok, tt.wantText, tt.wantOK)
		}
	}
}

// ── response encoding ────────────────────────────────────────────────────────

func TestWriteJSON_UnencodableValue(t *testing.T) {
	var logs bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	req := httptest.NewRequest(http.MethodPost, "/v1/route", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "req-1"))
	rec := httptest.NewRecorder()
	writeJSON(rec, req, http.StatusOK, types.Result{Input: "aaj", Confidence: math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	body := decodeBody[errorResponse](t, rec)
	if body.Error == "" {
		t.Error("error body is empty")
	}
	for _, want := range []string{"level=ERROR", "api: encode response", "path=/v1/route", "request_id=req-1"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q: %s", want, logs.String())
		}
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeJSON(rec, httptest.NewRequest(http.MethodGet, "/v1/languages", nil), http.StatusAccepted, map[string]string{"ok": "yes"})

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := rec.Body.String(); got != "{\"ok\":\"yes\"}\n" {
		t.Errorf("body = %q", got)
	}
}
