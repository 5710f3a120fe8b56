package validation

import "testing"

func TestPipeline_Process(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()

	tests := []struct {
		name string
		p    *Pipeline
		in   string
		want string
	}{
		{
			name: "whitespace collapse, no table hits",
			p:    NewPipeline(reg.Bundle("hi")),
			in:   "  आज   का मौसम कैसे है",
			want: "आज का मौसम कैसे है",
		},
		{
			name: "scenario table",
			p:    NewPipeline(NewBundle("hi", map[string]string{"mausm": "मौसम", "kse": "कैसे"}, nil)),
			in:   "mausm kse hai",
			want: "मौसम कैसे hai",
		},
		{
			name: "kannada typo",
			p:    NewPipeline(reg.Bundle("kn")),
			in:   "indu  havama",
			want: "ಇಂದು ಹವಾಮಾನ",
		},
		{
			name: "telugu typo",
			p:    NewPipeline(reg.Bundle("te")),
			in:   "iroju vatavra",
			want: "ఈరోజు వాతావరణం",
		},
		{name: "empty", p: NewPipeline(reg.Bundle("hi")), in: "", want: ""},
		{name: "whitespace only", p: NewPipeline(reg.Bundle("hi")), in: " \n\t ", want: ""},
		{name: "invalid utf8", p: NewPipeline(reg.Bundle("hi")), in: "mausm\xff", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.p.Process(tc.in); got != tc.want {
				t.Errorf("Process(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPipeline_InvalidInputSkipsHook(t *testing.T) {
	t.Parallel()

	called := false
	p := NewPipeline(DefaultRegistry().Bundle("hi"), WithMembershipHook(func(_, tok string, _ bool) (string, bool) {
		called = true
		return tok, true
	}))
	p.Process("")
	p.Process("\xfe\xff")
	if called {
		t.Error("membership hook invoked for empty or non-text input")
	}
}

func TestNewPipelines_Order(t *testing.T) {
	t.Parallel()

	ps := NewPipelines(DefaultRegistry(), SupportedCodes)
	if len(ps) != len(SupportedCodes) {
		t.Fatalf("got %d pipelines, want %d", len(ps), len(SupportedCodes))
	}
	for i, p := range ps {
		if p.Code() != SupportedCodes[i] {
			t.Errorf("pipeline[%d].Code() = %q, want %q", i, p.Code(), SupportedCodes[i])
		}
	}
}
