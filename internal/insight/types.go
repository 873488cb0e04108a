package insight

import (
	"context"
)

// Generator is the LLM text-generation capability consumed by the pipeline.
// This interface is defined from the pipeline's perspective (consumer-first).
type Generator interface {
	// Complete sends a prompt and returns the free-text reply.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	// CompleteJSON sends a prompt requesting a JSON object reply.
	CompleteJSON(ctx context.Context, prompt string, temperature float64) (string, error)
}

// Embedder produces fixed-length vectors for texts.
// An empty vector for an item means "no vector produced", not zero similarity.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// WebSearcher performs a web search. Implementations must return an empty
// slice (never an error that aborts the run) when the provider fails.
type WebSearcher interface {
	Search(ctx context.Context, query string, k int) []SearchHit
}

// SearchHit is a single web search result.
type SearchHit struct {
	Title   string
	Snippet string
	URL     string
}

// Fragment is a transient evidence candidate derived from a child chunk.
// Fragments are pooled per synthesis attempt and rebuilt each time.
type Fragment struct {
	DocumentID    string
	ParentID      string
	ChildID       string
	Text          string
	TokenEstimate int
}

// EvidenceRef cites a verbatim quote from a fragment. A ref is valid only if
// Quote is a substring of the referenced fragment's text.
type EvidenceRef struct {
	DocumentID string `json:"document_id"`
	ChildID    string `json:"child_id"`
	Quote      string `json:"quote"`
}

// CounterCheck is the adversarial pass output over the same evidence.
type CounterCheck struct {
	CounterEvidence []string `json:"counter_evidence"`
	Weakness        string   `json:"weakness"`
	Severity        float64  `json:"severity"`
}

// Candidate is a synthesized insight between the seed document and one or
// more other documents. It is created per synthesis call, scored, and may be
// mutated by bridging, self-evolution, and verification before persistence.
type Candidate struct {
	Mode             string        `json:"mode"` // "restructuring" or "serendipity"
	PairedDocuments  []string      `json:"paired_documents"`
	ReframedProblem  string        `json:"reframed_problem,omitempty"`
	InsightCore      string        `json:"insight_core"`
	Hypotheses       []string      `json:"hypotheses"`
	EurekaMarkers    []string      `json:"eureka_markers,omitempty"`
	BayesianSurprise float64       `json:"bayesian_surprise"`
	EvidenceRefs     []EvidenceRef `json:"evidence_refs"`
	Counter          *CounterCheck `json:"counter,omitempty"`
	Confidence       float64       `json:"confidence"`
	Constellation    bool          `json:"constellation,omitempty"`
	Verification     string        `json:"verification,omitempty"` // supported|uncertain|refuted
}

// RankedCandidate pairs a candidate with its ranking score.
type RankedCandidate struct {
	Candidate Candidate
	Score     float64
}
