package whatlang

import (
	"context"
	"testing"
)

func TestPredict_Scripts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "kannada", text: "ಇಂದು ಹವಾಮಾನ ಹೇಗಿದೆ ಎಂದು ಹೇಳಿ", want: "kn"},
		{name: "telugu", text: "ఈరోజు వాతావరణం ఎలా ఉంది చెప్పండి", want: "te"},
	}
	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			preds, err := c.Predict(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if len(preds) != 1 {
				t.Fatalf("got %d predictions, want 1", len(preds))
			}
			if preds[0].Label != tt.want {
				t.Errorf("Label = %q, want %q", preds[0].Label, tt.want)
			}
			if p := preds[0].Probability; p < 0 || p > 1 {
				t.Errorf("Probability = %v, out of range", p)
			}
		})
	}
}

func TestPredict_Whitelist(t *testing.T) {
	t.Parallel()

	c := New(WithWhitelist("hin", "mar", "bogus"))
	if len(c.opts.Whitelist) != 2 {
		t.Errorf("whitelist has %d entries, want 2", len(c.opts.Whitelist))
	}
	preds, err := c.Predict(context.Background(), "नमस्ते आज का मौसम कैसे है")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(preds) == 1 && preds[0].Label != "hi" && preds[0].Label != "mr" {
		t.Errorf("Label = %q, outside the whitelist", preds[0].Label)
	}
}

func TestPredict_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Predict(ctx, "ಇಂದು ಹವಾಮಾನ"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
