package insight

import (
	"context"
	"fmt"
	"strings"

	"notelink-ai/internal/contextutil"
)

// Verdict classifies how web search evidence relates to a claim.
type Verdict string

const (
	VerdictSupported Verdict = "supported"
	VerdictUncertain Verdict = "uncertain"
	VerdictRefuted   Verdict = "refuted"
)

// verificationWidth is the result count requested per verification query.
const verificationWidth = 5

// ClaimVerdict pairs a candidate claim with its verdict.
type ClaimVerdict struct {
	Claim   string
	Verdict Verdict
}

// VerifyInsight grounds the final insight core and its hypotheses against
// live web search: one query per candidate claim, built from the original
// query plus the quoted claim. A snippet containing the claim verbatim means
// supported; results without affirmation mean uncertain; no results mean
// refuted. The first supported claim's exact phrasing is preferred for the
// final text; with none supported the original phrasing stands.
func VerifyInsight(ctx context.Context, searcher WebSearcher, originalQuery, core string, hypotheses []string) (string, []ClaimVerdict) {
	logger := contextutil.LoggerFromContext(ctx)

	if searcher == nil {
		return core, nil
	}

	claims := append([]string{core}, hypotheses...)
	verdicts := make([]ClaimVerdict, 0, len(claims))
	preferred := core
	chosen := false

	for _, claim := range claims {
		claim = strings.TrimSpace(claim)
		if claim == "" {
			continue
		}

		query := fmt.Sprintf("%s %q", originalQuery, trimToRunes(claim, 200))
		hits := searcher.Search(ctx, query, verificationWidth)

		verdict := classifyHits(claim, hits)
		verdicts = append(verdicts, ClaimVerdict{Claim: claim, Verdict: verdict})

		if verdict == VerdictSupported && !chosen {
			preferred = claim
			chosen = true
		}
	}

	logger.InfoContext(ctx, "verification completed", "claims", len(verdicts), "supported_phrasing", chosen)
	return preferred, verdicts
}

func classifyHits(claim string, hits []SearchHit) Verdict {
	if len(hits) == 0 {
		return VerdictRefuted
	}
	needle := strings.ToLower(claim)
	for _, hit := range hits {
		if strings.Contains(strings.ToLower(hit.Snippet), needle) {
			return VerdictSupported
		}
	}
	return VerdictUncertain
}
