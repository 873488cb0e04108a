package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"notelink-ai/internal/contextutil"
)

// minVariantLength filters degenerate variants before scoring.
const minVariantLength = 40

// variantFramings are the stylistic framings requested for self-evolution.
var variantFramings = []string{
	"rigorous: precise, hedged, every claim qualified",
	"analogical: explain through one strong analogy",
	"pragmatic: lead with what the reader should do about it",
}

// Evolve generates stylistic variants of the leading insight core, has the
// model score them, and merges the top two into a final text. Every failure
// degrades: scoring failure falls back to generation order, merge failure
// falls back to the single best variant, and total failure returns the
// original core unchanged.
func (s *Synthesizer) Evolve(ctx context.Context, core string, temperature float64) string {
	logger := contextutil.LoggerFromContext(ctx)

	if s.gen == nil || strings.TrimSpace(core) == "" {
		return core
	}

	variants := s.generateVariants(ctx, core, temperature)
	variants = append(variants, core) // the original competes as a variant
	variants = dedupeVariants(variants)
	if len(variants) < 2 {
		return core
	}

	ordered := s.scoreVariants(ctx, variants)

	merged, err := s.mergeVariants(ctx, ordered[0], ordered[1], temperature)
	if err != nil {
		logger.WarnContext(ctx, "variant merge failed, keeping best variant", "error", err)
		return ordered[0]
	}
	return merged
}

func (s *Synthesizer) generateVariants(ctx context.Context, core string, temperature float64) []string {
	logger := contextutil.LoggerFromContext(ctx)

	variants := make([]string, 0, len(variantFramings))
	for _, framing := range variantFramings {
		prompt := fmt.Sprintf(
			"Rewrite this insight in a different framing (%s). Keep the substance identical; change only the expression. "+
				"Reply with the rewritten insight only.\n\nInsight: %s",
			framing, core,
		)
		variant, err := s.gen.Complete(ctx, prompt, temperature)
		if err != nil {
			logger.WarnContext(ctx, "variant generation failed", "framing", framing, "error", err)
			continue
		}
		variants = append(variants, strings.TrimSpace(variant))
	}
	return variants
}

// scoreVariants asks the model to score all variants 1-10 with feedback and
// returns them best-first. When scoring fails, generation order stands.
func (s *Synthesizer) scoreVariants(ctx context.Context, variants []string) []string {
	logger := contextutil.LoggerFromContext(ctx)

	var sb strings.Builder
	sb.WriteString("Score each variant of the same insight from 1 to 10 for clarity, depth, and usefulness.\n\n")
	for i, v := range variants {
		fmt.Fprintf(&sb, "Variant %d:\n%s\n\n", i, v)
	}
	sb.WriteString(`Return a JSON object: {"scores": [{"index": 0, "score": 7, "feedback": "..."}]}`)

	raw, err := s.gen.CompleteJSON(ctx, sb.String(), 0.2)
	if err != nil {
		logger.WarnContext(ctx, "variant scoring failed, using generation order", "error", err)
		return variants
	}

	var payload struct {
		Scores []struct {
			Index    int     `json:"index"`
			Score    float64 `json:"score"`
			Feedback string  `json:"feedback"`
		} `json:"scores"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil || len(payload.Scores) == 0 {
		logger.WarnContext(ctx, "unparsable variant scores, using generation order")
		return variants
	}

	scores := make(map[int]float64, len(payload.Scores))
	for _, s := range payload.Scores {
		if s.Index >= 0 && s.Index < len(variants) {
			scores[s.Index] = s.Score
		}
	}

	indices := make([]int, len(variants))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool { return scores[indices[a]] > scores[indices[b]] })

	ordered := make([]string, len(variants))
	for i, idx := range indices {
		ordered[i] = variants[idx]
	}
	return ordered
}

func (s *Synthesizer) mergeVariants(ctx context.Context, first, second string, temperature float64) (string, error) {
	prompt := fmt.Sprintf(
		"Merge these two phrasings of the same insight into one text that keeps the strongest elements of each. "+
			"Reply with the merged insight only.\n\nFirst:\n%s\n\nSecond:\n%s",
		first, second,
	)
	merged, err := s.gen.Complete(ctx, prompt, temperature)
	if err != nil {
		return "", err
	}
	merged = strings.TrimSpace(merged)
	if len(merged) < minVariantLength {
		return "", fmt.Errorf("merged variant degenerate (%d chars)", len(merged))
	}
	return merged, nil
}

func dedupeVariants(variants []string) []string {
	seen := make(map[string]struct{}, len(variants))
	result := make([]string, 0, len(variants))
	for _, v := range variants {
		v = strings.TrimSpace(v)
		if len(v) < minVariantLength {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, v)
	}
	return result
}
