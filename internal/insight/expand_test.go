package insight

import (
	"context"
	"strings"
	"testing"
)

func TestExpandQueries_LLMPath(t *testing.T) {
	gen := &fakeGenerator{completeJSONFn: func(string, float64) (string, error) {
		return "Sure, here are some queries:\n" +
			`["spacing effect", "Spacing Effect", "crop rotation analogues", "", "memory consolidation", "interval training"]`, nil
	}}

	queries := ExpandQueries(context.Background(), gen, "Spaced Repetition", "content", 3, 0.8)
	if len(queries) != 3 {
		t.Fatalf("got %d queries, want 3 (capped)", len(queries))
	}
	if queries[0] != "spacing effect" || queries[1] != "crop rotation analogues" {
		t.Errorf("queries = %v, case-insensitive duplicate and blank should be dropped", queries)
	}
}

func TestExpandQueries_FallsBackOnLLMFailure(t *testing.T) {
	gen := &fakeGenerator{} // CompleteJSON errors by default

	content := "repetition repetition repetition intervals intervals memory"
	queries := ExpandQueries(context.Background(), gen, "Spaced Repetition", content, 4, 0.8)
	if len(queries) == 0 {
		t.Fatal("keyword fallback should produce queries")
	}
	if queries[0] != "Spaced Repetition" {
		t.Errorf("queries[0] = %q, title should lead the fallback", queries[0])
	}
}

func TestExpandQueries_NilGenerator(t *testing.T) {
	queries := ExpandQueries(context.Background(), nil, "Title", "some content words here", 4, 0.8)
	if len(queries) == 0 {
		t.Fatal("nil generator should use the keyword fallback")
	}
	if queries[0] != "Title" {
		t.Errorf("queries[0] = %q, want the title", queries[0])
	}
}

func TestExpandQueries_ZeroBudget(t *testing.T) {
	if got := ExpandQueries(context.Background(), nil, "Title", "content", 0, 0.8); got != nil {
		t.Errorf("zero budget should yield nothing, got %v", got)
	}
}

func TestKeywordQueries(t *testing.T) {
	content := "repetition repetition repetition intervals intervals memory traces consolidation"

	queries := keywordQueries("My Title", content, 3)
	if len(queries) != 3 {
		t.Fatalf("got %d queries, want 3", len(queries))
	}
	if queries[0] != "My Title" {
		t.Errorf("queries[0] = %q, want the title", queries[0])
	}
	if !strings.Contains(queries[1], "repetition") {
		t.Errorf("queries[1] = %q, most frequent term should appear first", queries[1])
	}
	for _, q := range queries[1:] {
		if len(strings.Fields(q)) != 2 {
			t.Errorf("fallback query %q should pair two keywords", q)
		}
	}
}

func TestKeywordQueries_EmptyTitle(t *testing.T) {
	queries := keywordQueries("", "alpha alpha beta beta gamma delta", 2)
	if len(queries) == 0 {
		t.Fatal("content-only fallback should still produce queries")
	}
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			t.Errorf("blank query produced: %v", queries)
		}
	}
}
