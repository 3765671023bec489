package search

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/kitefield/chatgate/internal/chat"
)

// fakeEmbedder serves canned vectors keyed by exact text.
type fakeEmbedder struct {
	vecs map[string][]float32
}

func (f *fakeEmbedder) Available(context.Context) bool { return true }

func (f *fakeEmbedder) Embed(_ context.Context, text string) []float32 {
	return f.vecs[text]
}

func msgs(texts ...string) []chat.Message {
	out := make([]chat.Message, len(texts))
	for i, t := range texts {
		out[i] = chat.Message{
			Name: fmt.Sprintf("spaces/S/messages/%d", i),
			Text: t,
		}
	}
	return out
}

func names(scored []chat.ScoredMessage) []string {
	out := make([]string, len(scored))
	for i, sm := range scored {
		out[i] = sm.Message.Name
	}
	return out
}

func TestExactSearchSmartQuote(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	in := msgs("don't forget", "I won't either", "unrelated")

	got := e.Search(context.Background(), "don’t", in, ModeExact)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(got), names(got))
	}
	byName := map[string]float64{}
	for _, sm := range got {
		byName[sm.Message.Name] = sm.Score
	}
	primary, ok1 := byName[in[0].Name]
	alt, ok2 := byName[in[1].Name]
	if !ok1 || !ok2 {
		t.Fatalf("wrong result set: %v", names(got))
	}
	if primary < alt {
		t.Errorf("primary contraction match scored %v below alternative %v", primary, alt)
	}
}

func TestRegexContractionAlternation(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	in := msgs("do not open", "don't open", "open")

	got := e.Search(context.Background(), "don't open", in, ModeRegex)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(got), names(got))
	}
	// Both match at offset zero in equal-length-irrelevant texts, so the
	// scores tie and insertion order is preserved.
	if got[0].Message.Name != in[0].Name || got[1].Message.Name != in[1].Name {
		t.Errorf("order = %v, want input order for tied scores", names(got))
	}
	for _, sm := range got {
		if sm.Score <= 0 {
			t.Errorf("non-positive regex score %v for %s", sm.Score, sm.Message.Name)
		}
	}
}

func TestRegexInvalidPatternFallsBackToExact(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	in := msgs("open (bracket", "other")

	got := e.Search(context.Background(), "(bracket", in, ModeRegex)
	want := e.searchExact("(bracket", in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("invalid-pattern regex != exact fallback:\n got %v\nwant %v", got, want)
	}
	if len(got) != 1 || got[0].Message.Name != in[0].Name {
		t.Errorf("fallback missed the literal match: %v", names(got))
	}
}

func TestRegexPatternLengthCapFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode("regex").Options.MaxPatternLength = 4
	e := NewEngine(cfg, nil)
	in := msgs("abcdef here", "nothing")

	got := e.Search(context.Background(), "abcdef", in, ModeRegex)
	want := e.searchExact("abcdef", in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("over-cap pattern should score exactly: got %v want %v", got, want)
	}
}

// vecFor builds a unit vector whose rescaled cosine similarity against (1,0)
// equals sim.
func vecFor(sim float64) []float32 {
	c := 2*sim - 1
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

func TestSemanticDynamicThresholding(t *testing.T) {
	fe := &fakeEmbedder{vecs: map[string][]float32{"query": {1, 0}}}
	in := make([]chat.Message, 20)
	for i := range in {
		sim := 0.30 + 0.60*float64(i)/19
		text := fmt.Sprintf("message %02d", i)
		in[i] = chat.Message{Name: fmt.Sprintf("spaces/S/messages/%02d", i), Text: text}
		fe.vecs[text] = vecFor(sim)
	}

	e := NewEngine(DefaultConfig(), fe) // semantic threshold 0.6, weight 1.2
	got := e.Search(context.Background(), "query", in, ModeSemantic)

	// 20 candidates: dynamic thresholding keeps the top 20% (4) that clear
	// 0.8 x 0.6; items 10..15 pass the classical 0.6 threshold but are
	// excluded.
	if len(got) != 4 {
		t.Fatalf("got %d results, want 4: %v", len(got), names(got))
	}
	wantNames := []string{
		"spaces/S/messages/19",
		"spaces/S/messages/18",
		"spaces/S/messages/17",
		"spaces/S/messages/16",
	}
	if !reflect.DeepEqual(names(got), wantNames) {
		t.Errorf("names = %v, want %v", names(got), wantNames)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestSemanticSmallSetUsesClassicalThreshold(t *testing.T) {
	fe := &fakeEmbedder{vecs: map[string][]float32{
		"query": {1, 0},
		"high":  vecFor(0.9),
		"low":   vecFor(0.3),
	}}
	e := NewEngine(DefaultConfig(), fe)
	in := msgs("high", "low")

	got := e.Search(context.Background(), "query", in, ModeSemantic)
	if len(got) != 1 || got[0].Message.Name != in[0].Name {
		t.Fatalf("small candidate set: got %v, want only the high-similarity message", names(got))
	}
	wantScore := 1.2 * 0.9
	if math.Abs(got[0].Score-wantScore) > 1e-3 {
		t.Errorf("score = %v, want ~%v (weight x similarity)", got[0].Score, wantScore)
	}
}

func TestUnknownModeEqualsExact(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	in := msgs("hello there", "goodbye", "hello again hello")

	got := e.Search(context.Background(), "hello", in, Mode("unknown"))
	want := e.Search(context.Background(), "hello", in, ModeExact)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unknown mode != exact:\n got %v\nwant %v", got, want)
	}
}

func TestSemanticUnavailableEqualsExact(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil) // no embedder
	in := msgs("hello there", "goodbye")

	got := e.Search(context.Background(), "hello", in, ModeSemantic)
	want := e.Search(context.Background(), "hello", in, ModeExact)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unavailable semantic != exact:\n got %v\nwant %v", got, want)
	}
}

func TestEffectiveModeResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode("regex").Enabled = false
	e := NewEngine(cfg, nil)
	ctx := context.Background()

	cases := []struct {
		in   Mode
		want Mode
	}{
		{ModeUnset, ModeHybrid}, // configured default
		{ModeExact, ModeExact},
		{ModeRegex, ModeExact},    // disabled
		{ModeSemantic, ModeExact}, // no embedder
		{Mode("bogus"), ModeExact},
		{ModeHybrid, ModeHybrid},
	}
	for _, tc := range cases {
		if got := e.EffectiveMode(ctx, tc.in); got != tc.want {
			t.Errorf("EffectiveMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSortStabilityOnEqualScores(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	in := msgs("same text", "same text", "same text")

	got := e.Search(context.Background(), "same", in, ModeExact)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	for i, sm := range got {
		if sm.Message.Name != in[i].Name {
			t.Fatalf("equal scores reordered: %v", names(got))
		}
	}
}

func TestHybridMultiModeBonus(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil) // semantic drops out without embeddings
	in := msgs("hello")

	got := e.Search(context.Background(), "hello", in, ModeHybrid)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}

	exact := e.searchExact("hello", in)[0].Score
	regex := e.searchRegex("hello", in)[0].Score
	blend := 0.4*exact + 0.2*regex
	want := blend + hybridBonus*blend // matched by two modes
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("hybrid score = %v, want %v", got[0].Score, want)
	}
}

func TestHybridSingleModeMatchGetsNoBonus(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	// Alternation matches the expanded form that exact's primary form also
	// finds, so force a regex-only match with a character class.
	in := msgs("gray or grey")

	got := e.Search(context.Background(), "gr[ae]y", in, ModeHybrid)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1: %v", len(got), names(got))
	}
	// Exact finds no literal "gr[ae]y"; only regex contributes.
	regex := e.searchRegex("gr[ae]y", in)[0].Score
	want := 0.2 * regex
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("hybrid score = %v, want %v (regex share, no bonus)", got[0].Score, want)
	}
}

func TestMatchScoreFormula(t *testing.T) {
	cases := []struct {
		name   string
		weight float64
		count  int
		first  int
		length int
		mult   float64
		want   float64
	}{
		{"single early match", 1, 1, 0, 10, 1, 0.6 + 0.2/5 + 0.2},
		{"count capped at five", 1, 50, 0, 10, 1, 0.6 + 0.2 + 0.2},
		{"late match loses position credit", 1, 1, 10, 10, 1, 0.6 + 0.2/5},
		{"alternative multiplier", 1, 1, 0, 10, 0.9, 0.9 * (0.6 + 0.2/5 + 0.2)},
		{"weight scales", 2, 5, 0, 10, 1, 2.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := matchScore(tc.weight, tc.count, tc.first, tc.length, tc.mult)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("matchScore = %v, want %v", got, tc.want)
			}
		})
	}
}
