package insight

import "math"

// Tier names a budget profile. Two tiers exist: a constrained default and an
// expanded tier with multi-hop, self-evolution, and agentic refinement enabled.
type Tier string

const (
	TierStandard Tier = "standard"
	TierExtended Tier = "extended"
)

// Budget bounds one synthesis run. Values are immutable per tier; DeriveBudget
// returns an adjusted copy, never exceeding the tier's static ceilings for
// MaxQueries and MaxCycles.
type Budget struct {
	MaxQueries            int
	PerQueryWidth         int
	FinalCandidateCount   int
	MaxFragments          int
	MaxCycles             int
	TempProbe             float64
	TempInsight           float64
	CharBudget            int
	MaxWildcards          int
	EnableMultiHop        bool
	EnableSelfEvolution   bool
	MaxAgenticRefinements int
}

const (
	// thinEvidenceBonus is added to MaxFragments when retrieval flags the
	// evidence pool as thin.
	thinEvidenceBonus = 3
	// maxFragmentCap is the absolute ceiling for MaxFragments after bonuses.
	maxFragmentCap = 16
)

// PolicyFor returns the static budget for a tier. Unknown tiers fall back to
// the standard profile.
func PolicyFor(tier Tier) Budget {
	switch tier {
	case TierExtended:
		return Budget{
			MaxQueries:            8,
			PerQueryWidth:         10,
			FinalCandidateCount:   10,
			MaxFragments:          12,
			MaxCycles:             4,
			TempProbe:             1.0,
			TempInsight:           0.8,
			CharBudget:            12000,
			MaxWildcards:          2,
			EnableMultiHop:        true,
			EnableSelfEvolution:   true,
			MaxAgenticRefinements: 3,
		}
	default:
		return Budget{
			MaxQueries:          4,
			PerQueryWidth:       6,
			FinalCandidateCount: 6,
			MaxFragments:        8,
			MaxCycles:           2,
			TempProbe:           0.9,
			TempInsight:         0.7,
			CharBudget:          6000,
			MaxWildcards:        1,
		}
	}
}

// DeriveBudget scales MaxQueries and MaxCycles upward with the measured
// uncertainty of the current signals, clipped to the tier's static ceiling.
// When thinEvidence is set, MaxFragments gets a fixed bonus, also capped.
// Missing or malformed signal fields contribute zero.
func DeriveBudget(tier Tier, sig Signals, thinEvidence bool) Budget {
	ceiling := PolicyFor(tier)
	derived := ceiling

	u := uncertainty(sig)

	queriesFloor := maxInt(2, ceiling.MaxQueries/2)
	cyclesFloor := maxInt(1, ceiling.MaxCycles/2)

	derived.MaxQueries = queriesFloor + int(math.Round(u*float64(ceiling.MaxQueries-queriesFloor)))
	derived.MaxCycles = cyclesFloor + int(math.Round(u*float64(ceiling.MaxCycles-cyclesFloor)))

	if derived.MaxQueries > ceiling.MaxQueries {
		derived.MaxQueries = ceiling.MaxQueries
	}
	if derived.MaxCycles > ceiling.MaxCycles {
		derived.MaxCycles = ceiling.MaxCycles
	}

	if thinEvidence {
		derived.MaxFragments += thinEvidenceBonus
		if derived.MaxFragments > maxFragmentCap {
			derived.MaxFragments = maxFragmentCap
		}
	}

	return derived
}

// uncertainty collapses signals into a single [0,1] estimate. High entropy
// and low coverage both read as uncertain.
func uncertainty(sig Signals) float64 {
	u := 0.6*clamp01(sig.Entropy) + 0.4*(1-clamp01(sig.SeedCoverage))
	return clamp01(u)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
