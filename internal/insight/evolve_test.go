package insight

import (
	"context"
	"strings"
	"testing"
)

const evolveCore = "Spaced repetition and crop rotation both ration a scarce resource across deliberate intervals."

func TestEvolve_MergesTopVariants(t *testing.T) {
	merged := "Merged: both practices ration a scarce resource, and the gaps are the point, not the cost."
	gen := &fakeGenerator{
		completeFn: func(prompt string, _ float64) (string, error) {
			if strings.Contains(prompt, "Merge these two phrasings") {
				return merged, nil
			}
			// Variant generation: echo a framing-specific rewrite.
			switch {
			case strings.Contains(prompt, "rigorous"):
				return "Rigorous variant: under scheduling constraints, both systems allocate a bounded resource over time.", nil
			case strings.Contains(prompt, "analogical"):
				return "Analogical variant: a field resting between crops is a memory resting between reviews.", nil
			default:
				return "Pragmatic variant: leave gaps on purpose, in study plans and in planting plans alike.", nil
			}
		},
		completeJSONFn: func(prompt string, _ float64) (string, error) {
			return `{"scores": [{"index": 1, "score": 9, "feedback": "strong"}, {"index": 0, "score": 6}, {"index": 2, "score": 5}, {"index": 3, "score": 4}]}`, nil
		},
	}
	s := NewSynthesizer(gen)

	got := s.Evolve(context.Background(), evolveCore, 0.8)
	if got != merged {
		t.Errorf("Evolve = %q, want the merged text", got)
	}
}

func TestEvolve_ScoringFailureKeepsGenerationOrder(t *testing.T) {
	variant := "First generated variant with enough length to pass the degenerate filter easily."
	gen := &fakeGenerator{
		completeFn: func(prompt string, _ float64) (string, error) {
			if strings.Contains(prompt, "Merge these two phrasings") {
				return "", context.DeadlineExceeded
			}
			if strings.Contains(prompt, "rigorous") {
				return variant, nil
			}
			return "", context.DeadlineExceeded
		},
		// CompleteJSON errors by default, so scoring falls back to order.
	}
	s := NewSynthesizer(gen)

	got := s.Evolve(context.Background(), evolveCore, 0.8)
	if got != variant {
		t.Errorf("merge failure should keep the first variant, got %q", got)
	}
}

func TestEvolve_NilGeneratorReturnsOriginal(t *testing.T) {
	s := NewSynthesizer(nil)
	if got := s.Evolve(context.Background(), evolveCore, 0.8); got != evolveCore {
		t.Errorf("nil generator must return the original core, got %q", got)
	}
}

func TestEvolve_AllVariantsDegenerateReturnsOriginal(t *testing.T) {
	gen := &fakeGenerator{
		completeFn: func(string, float64) (string, error) { return "too short", nil },
	}
	s := NewSynthesizer(gen)

	if got := s.Evolve(context.Background(), evolveCore, 0.8); got != evolveCore {
		t.Errorf("degenerate variants must leave the core unchanged, got %q", got)
	}
}

func TestDedupeVariants(t *testing.T) {
	long := strings.Repeat("a distinct phrase ", 5)
	variants := []string{long, "  " + long + "  ", strings.ToUpper(long), "tiny"}

	got := dedupeVariants(variants)
	if len(got) != 1 {
		t.Errorf("deduped to %d variants, want 1 (case and whitespace insensitive, short dropped)", len(got))
	}
}
