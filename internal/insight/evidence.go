package insight

import "math"

// Evidence selection defaults. The per-document cap formula and the
// redundancy threshold are heuristic defaults, tunable via SelectorOptions.
const (
	defaultRedundancyThreshold = 0.8
	minPerDocumentCap          = 2
	fragmentDisplayLimit       = 1200
)

// SelectorOptions bounds the greedy evidence selection.
type SelectorOptions struct {
	// MaxFragments caps the number of selected fragments.
	MaxFragments int
	// PerDocumentCap caps fragments per document. Zero derives
	// ceil(MaxFragments / distinct documents), with a minimum of 2.
	PerDocumentCap int
	// RedundancyThreshold rejects fragments whose token Jaccard with any
	// chosen fragment meets or exceeds it. Zero uses the 0.8 default.
	RedundancyThreshold float64
	// CharBudget caps the total character payload after selection.
	CharBudget int
}

// SelectEvidence greedily picks a diverse, budget-respecting fragment subset:
// at each step the eligible fragment with the best new-vocabulary-per-token
// ratio wins, ties broken by pool order. A trailing pass enforces the hard
// character budget and truncates any single fragment to a fixed display
// length. LLM context is the scarce resource; both passes exist to bound it.
func SelectEvidence(pool []Fragment, query string, opts SelectorOptions) []Fragment {
	if len(pool) == 0 || opts.MaxFragments <= 0 {
		return nil
	}

	threshold := opts.RedundancyThreshold
	if threshold <= 0 {
		threshold = defaultRedundancyThreshold
	}

	perDocCap := opts.PerDocumentCap
	if perDocCap <= 0 {
		distinct := distinctDocuments(pool)
		perDocCap = int(math.Ceil(float64(opts.MaxFragments) / float64(distinct)))
		if perDocCap < minPerDocumentCap {
			perDocCap = minPerDocumentCap
		}
	}

	queryTokens := tokenSet(filterStopwords(tokenize(query)))
	covered := make(map[string]struct{})
	perDoc := make(map[string]int)
	chosen := make([]Fragment, 0, opts.MaxFragments)
	used := make([]bool, len(pool))

	for len(chosen) < opts.MaxFragments {
		// Only positive-gain fragments are eligible: a fragment adding no
		// new vocabulary cannot justify its token cost, so selection may
		// stop short of MaxFragments.
		bestIdx := -1
		bestRatio := 0.0

		for i, frag := range pool {
			if used[i] {
				continue
			}
			if perDoc[frag.DocumentID] >= perDocCap {
				continue
			}
			if isRedundant(frag, chosen, threshold) {
				continue
			}

			gain := marginalGain(frag, covered, queryTokens)
			cost := frag.TokenEstimate
			if cost < 1 {
				cost = 1
			}
			ratio := gain / float64(cost)
			if ratio > bestRatio {
				bestRatio = ratio
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			break // no eligible fragment remains
		}

		frag := pool[bestIdx]
		used[bestIdx] = true
		perDoc[frag.DocumentID]++
		for _, token := range tokenize(frag.Text) {
			covered[token] = struct{}{}
		}
		chosen = append(chosen, frag)
	}

	return applyCharBudget(chosen, opts.CharBudget)
}

// marginalGain counts vocabulary the fragment adds beyond what is already
// covered. Query terms count double: coverage of the asker's vocabulary is
// worth more than generic novelty.
func marginalGain(frag Fragment, covered map[string]struct{}, queryTokens map[string]struct{}) float64 {
	var gain float64
	seen := make(map[string]struct{})
	for _, token := range tokenize(frag.Text) {
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if _, ok := covered[token]; ok {
			continue
		}
		if _, inQuery := queryTokens[token]; inQuery {
			gain += 2
		} else {
			gain++
		}
	}
	return gain
}

func isRedundant(frag Fragment, chosen []Fragment, threshold float64) bool {
	for _, c := range chosen {
		if jaccard(frag.Text, c.Text) >= threshold {
			return true
		}
	}
	return false
}

// applyCharBudget truncates the selection to the hard character budget,
// clipping individual fragments to the display limit first.
func applyCharBudget(fragments []Fragment, charBudget int) []Fragment {
	if len(fragments) == 0 {
		return nil
	}

	result := make([]Fragment, 0, len(fragments))
	remaining := charBudget
	for _, frag := range fragments {
		frag.Text = trimToRunes(frag.Text, fragmentDisplayLimit)
		if charBudget > 0 {
			if remaining <= 0 {
				break
			}
			if len(frag.Text) > remaining {
				frag.Text = trimToRunes(frag.Text, remaining)
			}
			remaining -= len(frag.Text)
		}
		frag.TokenEstimate = estimateTokens(frag.Text)
		result = append(result, frag)
	}
	return result
}

func distinctDocuments(pool []Fragment) int {
	docs := make(map[string]struct{}, len(pool))
	for _, frag := range pool {
		docs[frag.DocumentID] = struct{}{}
	}
	if len(docs) == 0 {
		return 1
	}
	return len(docs)
}
