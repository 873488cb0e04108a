package insight

import (
	"context"
	"strings"

	"notelink-ai/internal/contextutil"
)

// maxBridgeCandidates bounds the third documents tried per bridge attempt.
const maxBridgeCandidates = 2

// bridgeStage attempts a multi-hop constellation: starting from the leading
// two-way insight seed<->A, it re-expands queries rooted at A, retrieves a
// small set of bridge documents B, and synthesizes over the union evidence
// pool seed+A+B. A constellation replaces the two-way result only when its
// confidence strictly improves on it; otherwise the two-way insight stands.
// The controller gates the whole attempt: no bridge unless the last cycle
// showed a strict tension decrease with bounded coupling.
func (p *Pipeline) bridgeStage(ctx context.Context, st *runState) error {
	logger := contextutil.LoggerFromContext(ctx)

	if !st.assessment.BridgeAllowed || len(st.ranked) == 0 {
		return nil
	}

	top := st.ranked[0]
	anchorID := bridgeAnchor(top.Candidate.PairedDocuments, st.seedID)
	if anchorID == "" {
		return nil
	}

	anchor, err := p.docs.GetByID(ctx, anchorID)
	if err != nil {
		return err
	}
	anchorFragments, err := p.fragmentsFor(ctx, anchorID)
	if err != nil {
		return err
	}
	if len(anchorFragments) == 0 {
		return nil
	}

	queries := ExpandQueries(ctx, p.gen, anchor.Title, joinFragmentTexts(anchorFragments), st.budget.MaxQueries, st.budget.TempProbe)

	bridgeBudget := st.budget
	bridgeBudget.FinalCandidateCount = maxBridgeCandidates
	bridgeBudget.MaxWildcards = 0

	candidates, err := p.retriever.Retrieve(ctx, queries, anchorID, bridgeBudget)
	if err != nil {
		return err
	}

	seedFragments, err := p.fragmentsFor(ctx, st.seedID)
	if err != nil {
		return err
	}

	var best *Candidate
	for _, cand := range candidates {
		if ctx.Err() != nil {
			return nil
		}
		if cand.DocumentID == st.seedID || cand.DocumentID == anchorID {
			continue
		}

		bridgeFragments, err := p.fragmentsFor(ctx, cand.DocumentID)
		if err != nil {
			return err
		}
		if len(bridgeFragments) == 0 {
			continue
		}

		pool := append(append(append([]Fragment(nil), seedFragments...), anchorFragments...), bridgeFragments...)
		evidence := SelectEvidence(pool, strings.Join(queries, " "), SelectorOptions{
			MaxFragments: st.budget.MaxFragments,
			CharBudget:   st.budget.CharBudget,
		})

		constellation, err := p.synth.GenerateInsight(ctx, evidence, st.budget.TempInsight, top.Candidate.InsightCore)
		if err != nil || constellation == nil {
			continue
		}
		if citedDocuments(constellation.EvidenceRefs) < 3 {
			// The synthesis only cited two of the three documents; not a
			// constellation.
			continue
		}
		if best == nil || constellation.Confidence > best.Confidence {
			best = constellation
		}
	}

	if best == nil || best.Confidence <= top.Candidate.Confidence {
		logger.InfoContext(ctx, "bridge attempt did not improve on two-way insight", "anchor", anchorID)
		return nil
	}

	best.Constellation = true
	st.ranked[0].Candidate = *best
	st.ranked[0].Score = scoreCandidate(best, Feedback{})
	logger.InfoContext(ctx, "constellation insight replaced two-way result",
		"anchor", anchorID,
		"documents", len(best.PairedDocuments),
		"confidence", best.Confidence,
	)
	return nil
}

func citedDocuments(refs []EvidenceRef) int {
	docs := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		docs[ref.DocumentID] = struct{}{}
	}
	return len(docs)
}

// bridgeAnchor picks the non-seed side of a two-way pairing.
func bridgeAnchor(paired []string, seedID string) string {
	for _, id := range paired {
		if id != seedID {
			return id
		}
	}
	return ""
}
