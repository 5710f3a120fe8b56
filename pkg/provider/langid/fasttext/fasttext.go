// Package fasttext provides a langid.Classifier backed by a fastText language
// identification model (e.g. lid.176.bin) served over HTTP.
//
// The model itself runs out of process. The server exposes POST /predict,
// which accepts {"text": "...", "k": 3} and replies with parallel label and
// probability arrays:
//
//	{"labels": ["__label__hi", "__label__mr"], "probabilities": [0.94, 0.03]}
//
// Labels are returned unchanged, prefix included; internal/langid strips the
// "__label__" prefix when it reads the top prediction.
//
// Usage:
//
//	c, err := fasttext.New("http://localhost:8090", fasttext.WithTopK(3))
//	preds, err := c.Predict(ctx, "नमस्ते आज का मौसम कैसे है")
package fasttext

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MrWong99/lidroute/pkg/provider/langid"
)

const (
	defaultTopK    = 1
	defaultTimeout = 10 * time.Second
)

// Compile-time assertion that Classifier implements langid.Classifier.
var _ langid.Classifier = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithTopK sets how many ranked labels the server is asked for. Default: 1.
func WithTopK(k int) Option {
	return func(c *Classifier) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithModel names the model the server should use when it hosts several.
func WithModel(model string) Option {
	return func(c *Classifier) {
		c.model = model
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Classifier) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Classifier calls a remote fastText prediction server. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	serverURL  string
	model      string
	topK       int
	httpClient *http.Client
}

// New creates a Classifier for the server at serverURL. serverURL must be
// non-empty.
func New(serverURL string, opts ...Option) (*Classifier, error) {
	if serverURL == "" {
		return nil, errors.New("fasttext: serverURL must not be empty")
	}
	c := &Classifier{
		serverURL:  strings.TrimRight(serverURL, "/"),
		topK:       defaultTopK,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type predictRequest struct {
	Text  string `json:"text"`
	K     int    `json:"k"`
	Model string `json:"model,omitempty"`
}

type predictResponse struct {
	Labels        []string  `json:"labels"`
	Probabilities []float64 `json:"probabilities"`
}

// Predict sends text to the server and returns its ranked labels.
func (c *Classifier) Predict(ctx context.Context, text string) ([]langid.Prediction, error) {
	// fastText predicts per line; newlines would split the input.
	text = strings.ReplaceAll(text, "\n", " ")

	payload, err := json.Marshal(predictRequest{Text: text, K: c.topK, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("fasttext: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("fasttext: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fasttext: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fasttext: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fasttext: read response body: %w", err)
	}

	var result predictResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("fasttext: parse JSON response: %w", err)
	}
	if len(result.Labels) != len(result.Probabilities) {
		return nil, fmt.Errorf("fasttext: response has %d labels but %d probabilities",
			len(result.Labels), len(result.Probabilities))
	}

	preds := make([]langid.Prediction, len(result.Labels))
	for i, l := range result.Labels {
		preds[i] = langid.Prediction{Label: l, Probability: result.Probabilities[i]}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Probability > preds[j].Probability
	})
	return preds, nil
}

// Ping checks that the server answers a trivial prediction. It is used as a
// readiness check.
func (c *Classifier) Ping(ctx context.Context) error {
	_, err := c.Predict(ctx, "ping")
	return err
}
