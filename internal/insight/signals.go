package insight

import (
	"math"
	"strings"
)

// Signals are dimensionless [0,1] metrics derived fresh each cycle from the
// current queries, candidate scores, and selected evidence. They have no
// persistent identity across cycles.
type Signals struct {
	SeedCoverage float64
	Novelty      float64
	RerankMargin float64
	Entropy      float64
}

// Benefit weights. Coverage, novelty, and margin count toward another cycle;
// entropy counts against it.
const (
	benefitCoverageWeight = 0.35
	benefitNoveltyWeight  = 0.25
	benefitMarginWeight   = 0.25
	benefitEntropyWeight  = 0.15
)

// EscalationCosts prices one more retrieval cycle. The coefficients are
// tuning constants, configurable rather than fixed truths.
type EscalationCosts struct {
	PerToken float64
	PerCall  float64
}

// DefaultEscalationCosts returns the stock cost-proxy coefficients.
func DefaultEscalationCosts() EscalationCosts {
	return EscalationCosts{PerToken: 0.00002, PerCall: 0.02}
}

// defaultEscalationThreshold is the minimum net benefit required to run one
// more retrieval cycle.
const defaultEscalationThreshold = 0.1

// ComputeSignals derives signals from the query set, normalized candidate
// scores, and the currently selected evidence texts.
func ComputeSignals(queries []string, scores []float64, evidence []string) Signals {
	queryTokens := filterStopwords(tokenize(strings.Join(queries, " ")))
	querySet := tokenSet(queryTokens)

	evidenceTokens := filterStopwords(tokenize(strings.Join(evidence, " ")))
	evidenceSet := tokenSet(evidenceTokens)

	var sig Signals

	// seedCoverage: fraction of query vocabulary found in evidence.
	if len(querySet) > 0 {
		var covered int
		for token := range querySet {
			if _, ok := evidenceSet[token]; ok {
				covered++
			}
		}
		sig.SeedCoverage = float64(covered) / float64(len(querySet))
	}

	// novelty: fraction of evidence vocabulary absent from the queries.
	if len(evidenceSet) > 0 {
		var novel int
		for token := range evidenceSet {
			if _, ok := querySet[token]; !ok {
				novel++
			}
		}
		sig.Novelty = float64(novel) / float64(len(evidenceSet))
	}

	sig.RerankMargin = rerankMargin(scores)
	sig.Entropy = scoreEntropy(scores)

	return sig
}

// rerankMargin is the gap between the top two scores, floored at zero.
func rerankMargin(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	top, second := math.Inf(-1), math.Inf(-1)
	for _, s := range scores {
		if s > top {
			second = top
			top = s
		} else if s > second {
			second = s
		}
	}
	if len(scores) == 1 {
		return clamp01(top)
	}
	margin := top - second
	if margin < 0 {
		margin = 0
	}
	return clamp01(margin)
}

// scoreEntropy maps the Shannon entropy of the normalized score distribution
// into [0,1) via 1-exp(-H).
func scoreEntropy(scores []float64) float64 {
	var total float64
	for _, s := range scores {
		if s > 0 {
			total += s
		}
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, s := range scores {
		if s <= 0 {
			continue
		}
		p := s / total
		h -= p * math.Log(p)
	}
	return 1 - math.Exp(-h)
}

// Benefit combines the signals into a single expected-gain estimate for one
// more retrieval cycle.
func (s Signals) Benefit() float64 {
	return benefitCoverageWeight*clamp01(s.SeedCoverage) +
		benefitNoveltyWeight*clamp01(s.Novelty) +
		benefitMarginWeight*clamp01(s.RerankMargin) -
		benefitEntropyWeight*clamp01(s.Entropy)
}

// ShouldEscalate is the cost/benefit gate for one more retrieval cycle:
// benefit minus the priced cost of the estimated tokens and calls must clear
// the threshold. A threshold <= 0 uses the default.
func ShouldEscalate(s Signals, estTokens, callCount int, costs EscalationCosts, threshold float64) bool {
	if threshold <= 0 {
		threshold = defaultEscalationThreshold
	}
	price := costs.PerToken*float64(estTokens) + costs.PerCall*float64(callCount)
	return s.Benefit()-price > threshold
}

// Tension collapses signals into the single scalar consumed by the depth
// controller. Unresolved state (high entropy, low coverage, thin margin)
// reads as high tension.
func (s Signals) Tension() float64 {
	t := 0.45*clamp01(s.Entropy) + 0.35*(1-clamp01(s.SeedCoverage)) + 0.20*(1-clamp01(s.RerankMargin))
	return clamp01(t)
}

// TensionOrMax returns the tension for valid signals, or maximal tension when
// the signals are absent or malformed. Failing closed stops deepening instead
// of running away on garbage input.
func TensionOrMax(s Signals, ok bool) float64 {
	if !ok {
		return 1
	}
	t := s.Tension()
	if math.IsNaN(t) {
		return 1
	}
	return t
}
