package insight

import (
	"fmt"
	"testing"
)

func TestRankCandidates_DominantCandidateWins(t *testing.T) {
	strong := &Candidate{
		InsightCore:      "Interval scheduling rations scarce attention the way crop rotation rations soil, so both reward deliberate gaps.",
		Confidence:       0.9,
		BayesianSurprise: 0.8,
		PairedDocuments:  []string{"seed", "doc-a"},
		EvidenceRefs: []EvidenceRef{
			{DocumentID: "seed", ChildID: "s-1", Quote: "q"},
			{DocumentID: "doc-a", ChildID: "a-1", Quote: "q"},
		},
	}
	weak := &Candidate{
		InsightCore:     "Short claim.",
		Confidence:      0.2,
		PairedDocuments: []string{"seed", "doc-b"},
	}

	ranked := RankCandidates([]*Candidate{weak, strong, nil}, Feedback{})
	if len(ranked) != 2 {
		t.Fatalf("ranked %d candidates, want 2", len(ranked))
	}
	if ranked[0].Candidate.Confidence != 0.9 {
		t.Errorf("dominant candidate should rank first, got %+v", ranked[0].Candidate)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("scores not ordered: %v <= %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankCandidates_CounterEvidencePenalizes(t *testing.T) {
	base := Candidate{
		InsightCore:      "Interval scheduling rations scarce attention across domains and rewards deliberate gaps in practice.",
		Confidence:       0.7,
		BayesianSurprise: 0.5,
		PairedDocuments:  []string{"seed", "doc-a"},
	}
	countered := base
	countered.PairedDocuments = []string{"seed", "doc-b"}
	countered.Counter = &CounterCheck{Weakness: "analogy is loose", Severity: 0.8}

	ranked := RankCandidates([]*Candidate{&countered, &base}, Feedback{})
	if len(ranked) != 2 {
		t.Fatalf("ranked %d candidates, want 2", len(ranked))
	}
	if ranked[0].Candidate.Counter != nil {
		t.Error("counter-checked candidate should rank below its clean twin")
	}
	delta := ranked[0].Score - ranked[1].Score
	if delta < rankCounterPenalty*0.8-1e-9 || delta > rankCounterPenalty*0.8+1e-9 {
		t.Errorf("penalty delta = %v, want %v", delta, rankCounterPenalty*0.8)
	}
}

func TestRankCandidates_DedupesByPairedDocuments(t *testing.T) {
	var candidates []*Candidate
	for i := 0; i < 4; i++ {
		candidates = append(candidates, &Candidate{
			InsightCore:     fmt.Sprintf("Claim number %d about the same document pair with enough words to score.", i),
			Confidence:      0.5 + float64(i)*0.1,
			PairedDocuments: []string{"seed", "doc-a"},
		})
	}
	candidates = append(candidates, &Candidate{
		InsightCore:     "A different pair entirely, linking the seed to the garden planning notes instead.",
		Confidence:      0.4,
		PairedDocuments: []string{"doc-b", "seed"},
	})

	ranked := RankCandidates(candidates, Feedback{})
	if len(ranked) != 2 {
		t.Fatalf("ranked %d candidates, want 2 (one per document pair)", len(ranked))
	}
	if ranked[0].Candidate.Confidence != 0.8 {
		t.Errorf("best of the duplicated pair should survive, got confidence %v", ranked[0].Candidate.Confidence)
	}
}

func TestRankCandidates_KeepsTopThree(t *testing.T) {
	var candidates []*Candidate
	for i := 0; i < 6; i++ {
		candidates = append(candidates, &Candidate{
			InsightCore:     fmt.Sprintf("Distinct claim %d with a reasonable number of words in the core text.", i),
			Confidence:      0.5,
			PairedDocuments: []string{"seed", fmt.Sprintf("doc-%d", i)},
		})
	}

	ranked := RankCandidates(candidates, Feedback{})
	if len(ranked) != rankKeepTop {
		t.Errorf("ranked %d candidates, want %d", len(ranked), rankKeepTop)
	}
}

func TestFeedbackSimilarity(t *testing.T) {
	core := "spaced repetition rations attention over time"

	up := feedbackSimilarity(core, Feedback{Upvoted: []string{"spaced repetition rations attention over time"}})
	if up != 1 {
		t.Errorf("identical upvoted claim similarity = %v, want 1", up)
	}

	down := feedbackSimilarity(core, Feedback{Downvoted: []string{"spaced repetition rations attention over time"}})
	if down != -1 {
		t.Errorf("identical downvoted claim similarity = %v, want -1", down)
	}

	if got := feedbackSimilarity(core, Feedback{}); got != 0 {
		t.Errorf("no feedback similarity = %v, want 0", got)
	}
}

func TestFluencyScore(t *testing.T) {
	if got := fluencyScore(""); got != 0 {
		t.Errorf("empty core fluency = %v, want 0", got)
	}
	short := fluencyScore("three word claim")
	if short <= 0 || short >= 1 {
		t.Errorf("short core fluency = %v, want in (0,1)", short)
	}
	band := fluencyScore("this core has exactly ten words which lands inside band")
	if band != 1 {
		t.Errorf("in-band core fluency = %v, want 1", band)
	}
}

func TestEvidenceDiversity_FlooredAtZero(t *testing.T) {
	if got := evidenceDiversity(&Candidate{}); got != 0 {
		t.Errorf("evidenceDiversity with no refs = %v, want 0", got)
	}

	cited := &Candidate{EvidenceRefs: []EvidenceRef{
		{DocumentID: "seed", ChildID: "s-1"},
		{DocumentID: "doc-a", ChildID: "a-1"},
	}}
	if got := evidenceDiversity(cited); got != 3 {
		t.Errorf("evidenceDiversity with two cross-document refs = %v, want 3", got)
	}
}
