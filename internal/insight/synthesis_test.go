package insight

import (
	"context"
	"strings"
	"testing"
)

func synthesisFragments() []Fragment {
	return []Fragment{
		{DocumentID: "doc-a", ChildID: "a-1", Text: "spaced repetition schedules reviews at increasing intervals", TokenEstimate: 10},
		{DocumentID: "doc-b", ChildID: "b-1", Text: "crop rotation spreads soil demands across seasons", TokenEstimate: 10},
	}
}

func TestGenerateInsight_ParsesStructuredReply(t *testing.T) {
	gen := &fakeGenerator{completeJSONFn: func(prompt string, _ float64) (string, error) {
		return `Here you go:
{"mode": "restructuring", "reframed_problem": "scheduling as resource allocation",
 "insight_core": "Both systems ration a scarce resource over time.",
 "hypotheses": ["interval schedules generalize"],
 "bayesian_surprise": 0.7, "confidence": 0.8,
 "evidence_refs": [
   {"document_id": "doc-a", "child_id": "a-1", "quote": "increasing intervals"},
   {"document_id": "doc-b", "child_id": "b-1", "quote": "this quote is fabricated"}
 ]}`, nil
	}}
	s := NewSynthesizer(gen)

	got, err := s.GenerateInsight(context.Background(), synthesisFragments(), 0.9, "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if got == nil {
		t.Fatal("expected a candidate")
	}
	if got.Mode != ModeRestructuring {
		t.Errorf("Mode = %q, want %q", got.Mode, ModeRestructuring)
	}
	if len(got.EvidenceRefs) != 1 || got.EvidenceRefs[0].ChildID != "a-1" {
		t.Errorf("fabricated citation should be dropped, got %+v", got.EvidenceRefs)
	}
	if len(got.PairedDocuments) != 2 {
		t.Errorf("PairedDocuments = %v, want both pool documents", got.PairedDocuments)
	}
}

func TestGenerateInsight_NoneModeYieldsNothing(t *testing.T) {
	gen := &fakeGenerator{completeJSONFn: func(string, float64) (string, error) {
		return `{"mode": "none"}`, nil
	}}
	s := NewSynthesizer(gen)

	got, err := s.GenerateInsight(context.Background(), synthesisFragments(), 0.9, "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if got != nil {
		t.Errorf("mode none must yield no candidate, got %+v", got)
	}
}

func TestGenerateInsight_FallsBackToHeuristicOnCallFailure(t *testing.T) {
	gen := &fakeGenerator{} // CompleteJSON errors by default
	s := NewSynthesizer(gen)

	got, err := s.GenerateInsight(context.Background(), synthesisFragments(), 0.9, "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if got == nil {
		t.Fatal("call failure should degrade to the heuristic candidate")
	}
	if got.Mode != ModeSerendipity {
		t.Errorf("heuristic Mode = %q, want %q", got.Mode, ModeSerendipity)
	}
	for _, ref := range got.EvidenceRefs {
		if !strings.Contains(fragmentText(synthesisFragments(), ref.ChildID), ref.Quote) {
			t.Errorf("heuristic ref %q is not a verbatim quote", ref.Quote)
		}
	}
}

func TestGenerateInsight_NilGeneratorUsesHeuristic(t *testing.T) {
	s := NewSynthesizer(nil)

	got, err := s.GenerateInsight(context.Background(), synthesisFragments(), 0.9, "")
	if err != nil {
		t.Fatalf("GenerateInsight: %v", err)
	}
	if got == nil || got.Mode != ModeSerendipity {
		t.Fatalf("nil generator should produce a heuristic candidate, got %+v", got)
	}
}

func TestGenerateInsight_EmptyPool(t *testing.T) {
	s := NewSynthesizer(nil)
	got, err := s.GenerateInsight(context.Background(), nil, 0.9, "")
	if err != nil || got != nil {
		t.Errorf("empty pool should yield (nil, nil), got (%+v, %v)", got, err)
	}
}

func TestValidateEvidenceRefs(t *testing.T) {
	fragments := synthesisFragments()
	refs := []EvidenceRef{
		{DocumentID: "doc-a", ChildID: "a-1", Quote: "increasing intervals"},
		{DocumentID: "doc-a", ChildID: "a-1", Quote: "not in the fragment"},
		{DocumentID: "doc-x", ChildID: "x-1", Quote: "increasing intervals"},
		{DocumentID: "doc-b", ChildID: "b-1", Quote: ""},
	}

	valid := ValidateEvidenceRefs(refs, fragments)
	if len(valid) != 1 {
		t.Fatalf("kept %d refs, want 1", len(valid))
	}
	if valid[0].ChildID != "a-1" {
		t.Errorf("kept ref %+v, want the verbatim a-1 citation", valid[0])
	}
}

func TestCounterCheck(t *testing.T) {
	gen := &fakeGenerator{completeJSONFn: func(string, float64) (string, error) {
		return `{"counter_evidence": ["crop rotation spreads soil demands"], "weakness": "the analogy is loose", "severity": 1.7}`, nil
	}}
	s := NewSynthesizer(gen)

	check := s.CounterCheck(context.Background(), "both ration a scarce resource", synthesisFragments(), 0.3)
	if check == nil {
		t.Fatal("expected a counter-check result")
	}
	if check.Severity != 1 {
		t.Errorf("Severity = %v, want clamped to 1", check.Severity)
	}
	if check.Weakness == "" {
		t.Error("Weakness should carry the model summary")
	}
}

func TestCounterCheck_FailureIsAbsence(t *testing.T) {
	s := NewSynthesizer(&fakeGenerator{})
	if check := s.CounterCheck(context.Background(), "claim", synthesisFragments(), 0.3); check != nil {
		t.Errorf("failed call should yield nil, got %+v", check)
	}

	s = NewSynthesizer(nil)
	if check := s.CounterCheck(context.Background(), "claim", synthesisFragments(), 0.3); check != nil {
		t.Errorf("nil generator should yield nil, got %+v", check)
	}
}

func TestRepairJSON(t *testing.T) {
	broken := `{"insight_core": "a windows path C:\Users\me"}`
	repaired := repairJSON(broken)
	if !strings.Contains(repaired, `C:\\Users\\me`) {
		t.Errorf("lone backslashes should be escaped, got %q", repaired)
	}

	fine := `{"a": "line\nbreak \"quoted\""}`
	if got := repairJSON(fine); got != fine {
		t.Errorf("valid escapes must pass through unchanged, got %q", got)
	}
}

func fragmentText(fragments []Fragment, childID string) string {
	for _, frag := range fragments {
		if frag.ChildID == childID {
			return frag.Text
		}
	}
	return ""
}
