package insight

import (
	"math"
	"sort"
	"strings"
)

// Ranking weights.
const (
	rankConvictionWeight = 0.40
	rankFluencyWeight    = 0.25
	rankSurpriseWeight   = 0.15
	rankDiversityWeight  = 0.10
	rankFeedbackWeight   = 0.10
	rankCounterPenalty   = 0.25
	rankKeepTop          = 3
)

// Feedback holds previously recorded up/down-voted insight core claims.
type Feedback struct {
	Upvoted   []string
	Downvoted []string
}

// RankCandidates scores and orders independently synthesized candidates.
// Top-3 survive, de-duplicated by paired document set.
func RankCandidates(candidates []*Candidate, feedback Feedback) []RankedCandidate {
	ranked := make([]RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		ranked = append(ranked, RankedCandidate{
			Candidate: *c,
			Score:     scoreCandidate(c, feedback),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	seen := make(map[string]struct{})
	result := make([]RankedCandidate, 0, rankKeepTop)
	for _, rc := range ranked {
		key := pairKey(rc.Candidate.PairedDocuments)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, rc)
		if len(result) == rankKeepTop {
			break
		}
	}
	return result
}

func scoreCandidate(c *Candidate, feedback Feedback) float64 {
	conviction := clamp01(c.Confidence)
	fluency := fluencyScore(c.InsightCore)
	surprise := clamp01(c.BayesianSurprise)
	diversity := math.Tanh(evidenceDiversity(c) / 6.0)

	counterSeverity := 0.0
	if c.Counter != nil {
		counterSeverity = math.Min(1, c.Counter.Severity)
	}

	return rankConvictionWeight*conviction +
		rankFluencyWeight*fluency +
		rankSurpriseWeight*surprise +
		rankDiversityWeight*diversity +
		rankFeedbackWeight*feedbackSimilarity(c.InsightCore, feedback) -
		rankCounterPenalty*counterSeverity
}

// fluencyScore is a cheap readability proxy: cores in a reasonable length
// band with several hypotheses read as more fluent.
func fluencyScore(core string) float64 {
	words := len(strings.Fields(core))
	switch {
	case words == 0:
		return 0
	case words < 8:
		return float64(words) / 8.0
	case words <= 80:
		return 1
	default:
		return math.Max(0.3, 1-float64(words-80)/200.0)
	}
}

// evidenceDiversity counts distinct cited child chunks, weighted up when the
// citations span more documents.
func evidenceDiversity(c *Candidate) float64 {
	children := make(map[string]struct{})
	docs := make(map[string]struct{})
	for _, ref := range c.EvidenceRefs {
		children[ref.ChildID] = struct{}{}
		docs[ref.DocumentID] = struct{}{}
	}
	if len(children) == 0 {
		return 0
	}
	return float64(len(children)) + float64(len(docs)-1)
}

// feedbackSimilarity is the Jaccard overlap between the candidate's core
// claim and recorded votes: max over upvoted claims minus max over downvoted.
func feedbackSimilarity(core string, feedback Feedback) float64 {
	up := maxJaccard(core, feedback.Upvoted)
	down := maxJaccard(core, feedback.Downvoted)
	return up - down
}

func maxJaccard(text string, claims []string) float64 {
	var best float64
	for _, claim := range claims {
		if sim := jaccard(text, claim); sim > best {
			best = sim
		}
	}
	return best
}

func pairKey(docs []string) string {
	sorted := append([]string(nil), docs...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}
