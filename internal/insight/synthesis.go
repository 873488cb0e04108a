package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"notelink-ai/internal/contextutil"
)

// Synthesis modes. A synthesis call must declare one of these or return
// nothing at all.
const (
	ModeRestructuring = "restructuring"
	ModeSerendipity   = "serendipity"
)

// Synthesizer turns selected evidence into structured insight candidates and
// runs the adversarial counter-check.
type Synthesizer struct {
	gen Generator
}

// NewSynthesizer creates a synthesizer. gen may be nil, in which case every
// call degrades to the deterministic heuristic path.
func NewSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// synthesisPayload is the JSON shape requested from the model.
type synthesisPayload struct {
	Mode             string        `json:"mode"`
	ReframedProblem  string        `json:"reframed_problem"`
	InsightCore      string        `json:"insight_core"`
	Hypotheses       []string      `json:"hypotheses"`
	EurekaMarkers    []string      `json:"eureka_markers"`
	BayesianSurprise float64       `json:"bayesian_surprise"`
	EvidenceRefs     []EvidenceRef `json:"evidence_refs"`
	Confidence       float64       `json:"confidence"`
}

// GenerateInsight prompts for a structured insight over the evidence pool.
// A "none" reply, or anything unusable after one repair attempt, yields
// (nil, nil): no insight is a valid outcome, not an error. Every returned
// evidence citation is verified to be a verbatim substring of its fragment;
// refs failing the check are dropped, never fatal.
func (s *Synthesizer) GenerateInsight(ctx context.Context, fragments []Fragment, temperature float64, guidingDraft string) (*Candidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(fragments) == 0 {
		return nil, nil
	}

	if s.gen == nil {
		return heuristicInsight(fragments), nil
	}

	prompt := buildSynthesisPrompt(fragments, guidingDraft)
	raw, err := s.gen.CompleteJSON(ctx, prompt, temperature)
	if err != nil {
		logger.WarnContext(ctx, "insight synthesis call failed, using heuristic fallback", "error", err)
		return heuristicInsight(fragments), nil
	}

	payload, ok := parseSynthesisPayload(raw)
	if !ok {
		logger.WarnContext(ctx, "unparsable synthesis payload, treating as no result")
		return nil, nil
	}
	if payload.Mode != ModeRestructuring && payload.Mode != ModeSerendipity {
		return nil, nil
	}
	if strings.TrimSpace(payload.InsightCore) == "" {
		return nil, nil
	}

	candidate := &Candidate{
		Mode:             payload.Mode,
		ReframedProblem:  payload.ReframedProblem,
		InsightCore:      payload.InsightCore,
		Hypotheses:       payload.Hypotheses,
		EurekaMarkers:    payload.EurekaMarkers,
		BayesianSurprise: clamp01(payload.BayesianSurprise),
		EvidenceRefs:     payload.EvidenceRefs,
		Confidence:       clamp01(payload.Confidence),
		PairedDocuments:  pairedDocuments(fragments),
	}
	candidate.EvidenceRefs = ValidateEvidenceRefs(candidate.EvidenceRefs, fragments)

	return candidate, nil
}

// CounterCheck runs an independent adversarial pass over the same evidence,
// looking for what undermines the insight. No new claims are permitted; the
// severity feeds ranking as a penalty, never a hard reject. Failure of the
// pass is reported as absence (nil), not an error.
func (s *Synthesizer) CounterCheck(ctx context.Context, insightCore string, fragments []Fragment, temperature float64) *CounterCheck {
	logger := contextutil.LoggerFromContext(ctx)

	if s.gen == nil || strings.TrimSpace(insightCore) == "" {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("You are an adversarial reviewer. Given an insight and the evidence it was built from, ")
	sb.WriteString("find evidence passages that undermine the insight. Use only the evidence below; do not introduce new claims.\n\n")
	sb.WriteString("Insight: " + insightCore + "\n\nEvidence:\n")
	writeFragments(&sb, fragments)
	sb.WriteString("\nReturn a JSON object: {\"counter_evidence\": [verbatim passages], \"weakness\": \"one-sentence summary\", \"severity\": 0.0-1.0}.")

	raw, err := s.gen.CompleteJSON(ctx, sb.String(), temperature)
	if err != nil {
		logger.WarnContext(ctx, "counter-check call failed, skipping penalty", "error", err)
		return nil
	}

	var check CounterCheck
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &check); err != nil {
		repaired := repairJSON(extractJSONObject(raw))
		if err := json.Unmarshal([]byte(repaired), &check); err != nil {
			logger.WarnContext(ctx, "unparsable counter-check payload, skipping penalty")
			return nil
		}
	}
	check.Severity = clamp01(check.Severity)
	return &check
}

// ValidateEvidenceRefs keeps only citations whose quote is a verbatim
// substring of the cited fragment's text. Invalid refs are silently dropped.
func ValidateEvidenceRefs(refs []EvidenceRef, fragments []Fragment) []EvidenceRef {
	byChild := make(map[string]string, len(fragments))
	for _, frag := range fragments {
		byChild[frag.ChildID] = frag.Text
	}

	valid := make([]EvidenceRef, 0, len(refs))
	for _, ref := range refs {
		text, ok := byChild[ref.ChildID]
		if !ok {
			continue
		}
		if ref.Quote == "" || !strings.Contains(text, ref.Quote) {
			continue
		}
		valid = append(valid, ref)
	}
	return valid
}

func buildSynthesisPrompt(fragments []Fragment, guidingDraft string) string {
	var sb strings.Builder
	sb.WriteString("You connect ideas across documents. From the evidence fragments below, synthesize one non-obvious insight linking the documents.\n\n")
	sb.WriteString("Evidence:\n")
	writeFragments(&sb, fragments)
	if strings.TrimSpace(guidingDraft) != "" {
		sb.WriteString("\nA prior draft to refine (keep what holds, fix what does not):\n")
		sb.WriteString(trimToRunes(guidingDraft, 1500))
		sb.WriteString("\n")
	}
	sb.WriteString("\nRespond with a JSON object:\n")
	sb.WriteString(`{"mode": "restructuring" (impasse detected, minimal reframing, prior/posterior hypotheses, bayesian surprise) or "serendipity" (unexpected pattern, projected value, exploitation step) or "none", `)
	sb.WriteString(`"reframed_problem": string, "insight_core": string, "hypotheses": [strings], "eureka_markers": [strings], `)
	sb.WriteString(`"bayesian_surprise": 0.0-1.0, "confidence": 0.0-1.0, `)
	sb.WriteString(`"evidence_refs": [{"document_id": string, "child_id": string, "quote": "verbatim substring of that fragment"}]}`)
	sb.WriteString("\nIf no genuine connection exists, set mode to \"none\".")
	return sb.String()
}

func writeFragments(sb *strings.Builder, fragments []Fragment) {
	for _, frag := range fragments {
		fmt.Fprintf(sb, "[doc=%s child=%s]\n%s\n\n", frag.DocumentID, frag.ChildID, frag.Text)
	}
}

// parseSynthesisPayload decodes the model reply, attempting one
// backslash-escape repair before giving up.
func parseSynthesisPayload(raw string) (synthesisPayload, bool) {
	var payload synthesisPayload

	body := extractJSONObject(raw)
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		if payload.Mode == "none" {
			return payload, false
		}
		return payload, true
	}

	repaired := repairJSON(body)
	if err := json.Unmarshal([]byte(repaired), &payload); err == nil && payload.Mode != "none" {
		return payload, true
	}
	return payload, false
}

// extractJSONObject strips prose and code fences around a JSON object reply.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// repairJSON escapes lone backslashes, the most common corruption in model
// JSON output. One repair attempt only; anything still broken is "no result".
func repairJSON(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' {
			sb.WriteRune(r)
			continue
		}
		if i+1 < len(runes) {
			switch runes[i+1] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				sb.WriteRune(r)
				continue
			}
		}
		sb.WriteString(`\\`)
	}
	return sb.String()
}

// heuristicInsight is the deterministic non-LLM fallback: a serendipity-mode
// candidate stitched from the leading fragments of each document, with
// verbatim prefix citations.
func heuristicInsight(fragments []Fragment) *Candidate {
	firstByDoc := make(map[string]Fragment)
	var docOrder []string
	for _, frag := range fragments {
		if _, ok := firstByDoc[frag.DocumentID]; !ok {
			firstByDoc[frag.DocumentID] = frag
			docOrder = append(docOrder, frag.DocumentID)
		}
	}
	if len(docOrder) < 2 {
		return nil
	}

	var parts []string
	var refs []EvidenceRef
	for _, docID := range docOrder {
		frag := firstByDoc[docID]
		snippet := trimToRunes(strings.TrimSpace(frag.Text), 160)
		parts = append(parts, snippet)
		refs = append(refs, EvidenceRef{
			DocumentID: frag.DocumentID,
			ChildID:    frag.ChildID,
			Quote:      snippet,
		})
	}

	return &Candidate{
		Mode:            ModeSerendipity,
		InsightCore:     "These documents touch adjacent ground: " + strings.Join(parts, " / "),
		Hypotheses:      []string{"The documents share an underlying theme worth a closer read."},
		EvidenceRefs:    ValidateEvidenceRefs(refs, fragments),
		Confidence:      0.3,
		PairedDocuments: docOrder,
	}
}

func pairedDocuments(fragments []Fragment) []string {
	var docs []string
	seen := make(map[string]struct{})
	for _, frag := range fragments {
		if _, ok := seen[frag.DocumentID]; ok {
			continue
		}
		seen[frag.DocumentID] = struct{}{}
		docs = append(docs, frag.DocumentID)
	}
	return docs
}
