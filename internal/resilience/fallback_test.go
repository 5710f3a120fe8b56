package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestGroup() *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_Execute(t *testing.T) {
	tests := []struct {
		name       string
		failing    map[string]bool
		wantCalled string
		wantErr    error
	}{
		{"primary succeeds", nil, "primary", nil},
		{"primary fails", map[string]bool{"primary": true}, "secondary", nil},
		{"all fail", map[string]bool{"primary": true, "secondary": true}, "", ErrAllFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg := newTestGroup()
			var called string
			err := fg.Execute(context.Background(), func(v string) error {
				if tt.failing[v] {
					return errTest
				}
				called = v
				return nil
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, errTest) {
					t.Errorf("err = %v, should wrap the last backend error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if called != tt.wantCalled {
				t.Errorf("called = %q, want %q", called, tt.wantCalled)
			}
		})
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	fg := newTestGroup()
	for i := 0; i < 2; i++ {
		_ = fg.Execute(context.Background(), func(v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	status := fg.Status()
	if len(status) != 2 || status[0].State != "open" || status[1].State != "closed" {
		t.Fatalf("Status() = %+v, want primary open and secondary closed", status)
	}

	var calls []string
	err := fg.Execute(context.Background(), func(v string) error {
		calls = append(calls, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0] != "secondary" {
		t.Fatalf("calls = %v, want [secondary]", calls)
	}
}

func TestFallbackGroup_StopsOnCanceledContext(t *testing.T) {
	fg := newTestGroup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := fg.Execute(ctx, func(string) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("fn called after cancellation")
	}
}

func TestExecuteWithResult(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{})
	fg.AddFallback("twenty", 20)
	if fg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", fg.Len())
	}

	result, err := ExecuteWithResult(context.Background(), fg, func(v int) (int, error) {
		if v == 10 {
			return 0, errTest
		}
		return v * 2, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 40 {
		t.Fatalf("result = %d, want 40", result)
	}
}
