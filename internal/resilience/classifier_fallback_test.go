package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/lidroute/pkg/provider/langid"
	"github.com/MrWong99/lidroute/pkg/provider/langid/mock"
)

func TestClassifierFallback_Predict(t *testing.T) {
	hi := []langid.Prediction{{Label: "__label__hi", Probability: 0.9}}
	te := []langid.Prediction{{Label: "te", Probability: 0.7}}

	tests := []struct {
		name      string
		primary   *mock.Classifier
		secondary *mock.Classifier
		want      string
		wantErr   bool
	}{
		{
			name:      "primary answers",
			primary:   &mock.Classifier{Predictions: hi},
			secondary: &mock.Classifier{Predictions: te},
			want:      "__label__hi",
		},
		{
			name:      "primary errors",
			primary:   &mock.Classifier{PredictErr: errors.New("unreachable")},
			secondary: &mock.Classifier{Predictions: te},
			want:      "te",
		},
		{
			name:      "primary has no opinion",
			primary:   &mock.Classifier{},
			secondary: &mock.Classifier{Predictions: te},
			want:      "te",
		},
		{
			name:      "all fail",
			primary:   &mock.Classifier{PredictErr: errors.New("a")},
			secondary: &mock.Classifier{},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := NewClassifierFallback(tt.primary, "primary", FallbackConfig{
				CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
			})
			fb.AddFallback("secondary", tt.secondary)

			preds, err := fb.Predict(context.Background(), "some text")
			if tt.wantErr {
				if !errors.Is(err, ErrAllFailed) {
					t.Fatalf("err = %v, want ErrAllFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(preds) == 0 || preds[0].Label != tt.want {
				t.Fatalf("preds = %v, want top label %q", preds, tt.want)
			}
			if tt.primary.CallCount() != 1 {
				t.Errorf("primary called %d times, want 1", tt.primary.CallCount())
			}
		})
	}
}

func TestClassifierFallback_Status(t *testing.T) {
	fb := NewClassifierFallback(&mock.Classifier{}, "lingua", FallbackConfig{})
	fb.AddFallback("whatlang", &mock.Classifier{})

	st := fb.Status()
	if len(st) != 2 || st[0].Name != "lingua" || st[1].Name != "whatlang" {
		t.Fatalf("Status() = %+v", st)
	}
}
