package strategy

import (
	"errors"
	"math"
	"testing"

	"ai-teleprompter-service/internal/prompter/equivalence"
	"ai-teleprompter-service/internal/prompter/match"
	"ai-teleprompter-service/internal/prompter/script"
)

func mustScript(t *testing.T, text string) *script.Script {
	t.Helper()
	s, err := script.New(text)
	if err != nil {
		t.Fatalf("script.New(%q): %v", text, err)
	}
	return s
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero sensitivity", func(c *Config) { c.Sensitivity = 0 }, ErrInvalidConfig},
		{"negative sensitivity", func(c *Config) { c.Sensitivity = -1 }, ErrInvalidConfig},
		{"NaN sensitivity", func(c *Config) { c.Sensitivity = math.NaN() }, ErrInvalidConfig},
		{"zero window", func(c *Config) { c.SearchWindowSize = 0 }, ErrInvalidConfig},
		{"zero min match", func(c *Config) { c.MinMatchCount = 0 }, ErrInvalidConfig},
		{"unknown strategy", func(c *Config) { c.Strategy = "magic" }, ErrUnknownStrategy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_ValidateReportsAllFields(t *testing.T) {
	cfg := Config{Strategy: "nope"}
	err := cfg.Validate()
	if !errors.Is(err, ErrUnknownStrategy) || !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected joined errors for all fields, got %v", err)
	}
}

func TestParseSensitivity(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"slow", 0.7, false},
		{"Medium", 1.0, false},
		{" fast ", 1.3, false},
		{"1.15", 1.15, false},
		{"-2", -2, false},
		{"quick", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSensitivity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSensitivity(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSensitivity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_SelectsStrategy(t *testing.T) {
	sc := mustScript(t, "a b c")

	cfg := DefaultConfig()
	s, err := New(cfg, sc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name() != NameContentMatch {
		t.Errorf("expected %s, got %s", NameContentMatch, s.Name())
	}

	cfg.Strategy = NameIncremental
	s, err = New(cfg, sc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name() != NameIncremental {
		t.Errorf("expected %s, got %s", NameIncremental, s.Name())
	}

	cfg.Sensitivity = 0
	if _, err := New(cfg, sc, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New(DefaultConfig(), nil, nil); !errors.Is(err, script.ErrScriptEmpty) {
		t.Errorf("expected ErrScriptEmpty for nil script, got %v", err)
	}
}

func TestIncremental_Deltas(t *testing.T) {
	s := NewIncremental(1.0)
	cursor := 0

	p, ok := s.Propose(Input{Utterance: 0, Text: "hello"}, cursor)
	if !ok || p.Position != 1 {
		t.Fatalf("expected advance by 1 to 1, got %+v ok=%v", p, ok)
	}
	cursor = p.Position

	p, ok = s.Propose(Input{Utterance: 0, Text: "hello there friend"}, cursor)
	if !ok || p.Position != 3 {
		t.Fatalf("expected advance by 2 to 3, got %+v ok=%v", p, ok)
	}
	cursor = p.Position

	// Same count again, or a shorter restatement, proposes nothing.
	if _, ok := s.Propose(Input{Utterance: 0, Text: "hello there friend"}, cursor); ok {
		t.Error("expected no proposal for repeated interim")
	}
	if _, ok := s.Propose(Input{Utterance: 0, Text: "hello there"}, cursor); ok {
		t.Error("expected no proposal for shrinking interim")
	}

	// Final resets the counter and does not move.
	if _, ok := s.Propose(Input{Utterance: 0, Text: "hello there friend", Final: true}, cursor); ok {
		t.Error("expected final to propose nothing")
	}

	p, ok = s.Propose(Input{Utterance: 1, Text: "next"}, cursor)
	if !ok || p.Position != 4 {
		t.Errorf("expected new utterance to advance by 1 to 4, got %+v ok=%v", p, ok)
	}
}

func TestIncremental_NewUtteranceWithoutFinal(t *testing.T) {
	s := NewIncremental(1.0)
	s.Propose(Input{Utterance: 0, Text: "one two three"}, 0)

	p, ok := s.Propose(Input{Utterance: 1, Text: "four"}, 3)
	if !ok || p.Position != 4 {
		t.Errorf("expected counter reset on utterance change, got %+v ok=%v", p, ok)
	}
}

func TestIncremental_Sensitivity(t *testing.T) {
	tests := []struct {
		sensitivity float64
		text        string
		want        int
		wantOK      bool
	}{
		{0.7, "one two three four five six seven eight nine ten", 7, true},
		{1.3, "one two three four five six seven eight nine ten", 13, true},
		{0.7, "one", 1, true},  // round(0.7) = 1
		{0.3, "one", 0, false}, // round(0.3) = 0, no change
	}
	for _, tt := range tests {
		s := NewIncremental(tt.sensitivity)
		p, ok := s.Propose(Input{Text: tt.text}, 0)
		if ok != tt.wantOK || (ok && p.Position != tt.want) {
			t.Errorf("sensitivity %v: got %+v ok=%v, want %d ok=%v", tt.sensitivity, p, ok, tt.want, tt.wantOK)
		}
	}
}

func TestIncremental_Reset(t *testing.T) {
	s := NewIncremental(1.0)
	s.Propose(Input{Utterance: 0, Text: "one two"}, 0)
	s.Reset()

	p, ok := s.Propose(Input{Utterance: 0, Text: "one two"}, 0)
	if !ok || p.Position != 2 {
		t.Errorf("expected history cleared after Reset, got %+v ok=%v", p, ok)
	}
}

func TestContentMatch_Propose(t *testing.T) {
	sc := mustScript(t, "the quick brown fox jumps over the lazy dog")
	cfg := DefaultConfig()
	cfg.SearchWindowSize = 5
	s, err := New(cfg, sc, equivalence.Default())
	if err != nil {
		t.Fatal(err)
	}

	p, ok := s.Propose(Input{Text: "quick brown"}, 0)
	if !ok || p.Position != 1 || p.Score != 2 {
		t.Errorf("expected position 1 score 2, got %+v ok=%v", p, ok)
	}

	if _, ok := s.Propose(Input{Text: "  ...  "}, 0); ok {
		t.Error("expected empty snippet to propose nothing")
	}

	// "lazy dog" sits at 7, outside a window of 5 from cursor 1.
	if _, ok := s.Propose(Input{Text: "lazy dog"}, 1); ok {
		t.Error("expected no match outside the window")
	}
	p, ok = s.Propose(Input{Text: "lazy dog"}, 4)
	if !ok || p.Position != 7 {
		t.Errorf("expected position 7, got %+v ok=%v", p, ok)
	}
}

func TestContentMatch_Finals(t *testing.T) {
	sc := mustScript(t, "alpha beta gamma")

	matching := NewContentMatch(newSearcher(), sc, true)
	if _, ok := matching.Propose(Input{Text: "beta", Final: true}, 0); !ok {
		t.Error("expected final to be matched when enabled")
	}

	advisory := NewContentMatch(newSearcher(), sc, false)
	if _, ok := advisory.Propose(Input{Text: "beta", Final: true}, 0); ok {
		t.Error("expected final to be status-only when disabled")
	}
}

func newSearcher() *match.Searcher {
	return match.NewSearcher(match.NewScorer(nil), 1, 30)
}
