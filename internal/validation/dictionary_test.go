package validation

import (
	"slices"
	"testing"
)

func TestDictionaryValidator_Check(t *testing.T) {
	t.Parallel()

	v := NewDictionaryValidator(DefaultRegistry().Bundle("kn"), nil)
	if !v.Check("ಹೇಗಿದ್ದೀರಿ") {
		t.Error("precomposed lexicon word not found")
	}
	if !v.Check(Normalize("ಹೇಗಿದ್ದೀರಿ")) {
		t.Error("normalised lexicon word not found")
	}
	if v.Check("bengaluru") {
		t.Error("unexpected membership for out-of-lexicon token")
	}
}

func TestDictionaryValidator_ValidateKeepsUnknownTokens(t *testing.T) {
	t.Parallel()

	v := NewDictionaryValidator(DefaultRegistry().Bundle("hi"), nil)
	got := v.Validate("आज Delhi का मौसम")
	if got != "आज Delhi का मौसम" {
		t.Errorf("Validate = %q, want all tokens kept", got)
	}
}

func TestDictionaryValidator_HookSeesEveryToken(t *testing.T) {
	t.Parallel()

	type seen struct {
		lang, token string
		known       bool
	}
	var calls []seen
	hook := func(lang, token string, known bool) (string, bool) {
		calls = append(calls, seen{lang, token, known})
		return token, true
	}

	v := NewDictionaryValidator(NewBundle("xx", nil, []string{"hello"}), hook)
	v.Validate("hello there")

	want := []seen{{"xx", "hello", true}, {"xx", "there", false}}
	if !slices.Equal(calls, want) {
		t.Errorf("hook calls = %+v, want %+v", calls, want)
	}
}

func TestDictionaryValidator_DropUnknown(t *testing.T) {
	t.Parallel()

	v := NewDictionaryValidator(NewBundle("xx", nil, []string{"hello", "world"}), DropUnknown)
	if got := v.Validate("hello there world"); got != "hello world" {
		t.Errorf("Validate = %q, want %q", got, "hello world")
	}
}

func TestDictionaryValidator_Suggest(t *testing.T) {
	t.Parallel()

	v := NewDictionaryValidator(NewBundle("xx", nil, []string{"hello", "help", "world"}), nil)

	tests := []struct {
		name  string
		token string
		want  []string
	}{
		{name: "drop last rune matches", token: "helo", want: []string{"hello", "help"}},
		{name: "drop first rune matches", token: "xorld", want: []string{"world"}},
		{name: "known token", token: "world", want: nil},
		{name: "empty token", token: "", want: nil},
		{name: "no candidates", token: "qqqq", want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := v.Suggest(tc.token)
			slices.Sort(got)
			if !slices.Equal(got, tc.want) {
				t.Errorf("Suggest(%q) = %v, want %v", tc.token, got, tc.want)
			}
		})
	}
}

func TestDictionaryValidator_SuggestDevanagari(t *testing.T) {
	t.Parallel()

	v := NewDictionaryValidator(DefaultRegistry().Bundle("hi"), nil)
	got := v.Suggest("मौसमी")
	if !slices.Contains(got, "मौसम") {
		t.Errorf("Suggest(%q) = %v, want it to contain %q", "मौसमी", got, "मौसम")
	}
}

func TestClosest(t *testing.T) {
	t.Parallel()

	best, score := Closest("helo", []string{"help", "hello"})
	if best != "hello" {
		t.Errorf("Closest = %q, want %q", best, "hello")
	}
	if score <= 0 || score > 1 {
		t.Errorf("score = %f, want in (0, 1]", score)
	}

	if best, _ := Closest("helo", nil); best != "" {
		t.Errorf("Closest with no candidates = %q, want empty", best)
	}
}

func TestDictionaryValidator_Inspect(t *testing.T) {
	t.Parallel()

	v := NewDictionaryValidator(NewBundle("xx", nil, []string{"hello", "world"}), nil)
	reps := v.Inspect("hello wrld")
	if len(reps) != 2 {
		t.Fatalf("got %d reports, want 2", len(reps))
	}
	if !reps[0].Known || reps[0].Suggestions != nil {
		t.Errorf("report[0] = %+v, want known without suggestions", reps[0])
	}
	if reps[1].Known {
		t.Errorf("report[1] = %+v, want unknown", reps[1])
	}
	if reps[1].Closest != "world" {
		t.Errorf("report[1].Closest = %q, want %q", reps[1].Closest, "world")
	}
}
