package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"notelink-ai/internal/contextutil"
)

// ExpandQueries produces up to maxQueries diverse search queries for a seed
// document. The LLM path asks for a JSON array of queries; on any failure the
// deterministic keyword expansion takes over, so this never errors out.
func ExpandQueries(ctx context.Context, gen Generator, title, content string, maxQueries int, temperature float64) []string {
	logger := contextutil.LoggerFromContext(ctx)

	if maxQueries <= 0 {
		return nil
	}

	if gen != nil {
		queries, err := expandWithLLM(ctx, gen, title, content, maxQueries, temperature)
		if err == nil && len(queries) > 0 {
			return queries
		}
		if err != nil {
			logger.WarnContext(ctx, "LLM query expansion failed, using keyword fallback", "error", err)
		}
	}

	return keywordQueries(title, content, maxQueries)
}

func expandWithLLM(ctx context.Context, gen Generator, title, content string, maxQueries int, temperature float64) ([]string, error) {
	excerpt := trimToRunes(content, 2400)
	prompt := fmt.Sprintf(
		"You generate search queries to find documents related to a note in unexpected ways.\n"+
			"Note title: %s\n"+
			"Note content:\n%s\n\n"+
			"Return a JSON array of at most %d short, diverse search queries. "+
			"Mix literal topic queries with lateral ones (adjacent fields, underlying principles, contrasting views). "+
			"Respond with the JSON array only.",
		title, excerpt, maxQueries,
	)

	raw, err := gen.CompleteJSON(ctx, prompt, temperature)
	if err != nil {
		return nil, err
	}

	var queries []string
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &queries); err != nil {
		return nil, fmt.Errorf("failed to parse query expansion response: %w", err)
	}

	seen := make(map[string]struct{}, len(queries))
	result := make([]string, 0, maxQueries)
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, q)
		if len(result) == maxQueries {
			break
		}
	}
	return result, nil
}

// keywordQueries is the non-LLM fallback: the title plus the most frequent
// non-stopword terms of the document, combined into a few short queries.
func keywordQueries(title, content string, maxQueries int) []string {
	freq := make(map[string]int)
	for _, token := range filterStopwords(tokenize(content)) {
		if len(token) < 3 {
			continue
		}
		freq[token]++
	}

	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})

	queries := make([]string, 0, maxQueries)
	if strings.TrimSpace(title) != "" {
		queries = append(queries, strings.TrimSpace(title))
	}

	// Pair up top terms so each query carries two keywords of context.
	for i := 0; i+1 < len(terms) && len(queries) < maxQueries; i += 2 {
		queries = append(queries, terms[i]+" "+terms[i+1])
	}
	if len(queries) < maxQueries && len(terms) > 0 {
		last := terms[len(terms)-1]
		if len(queries) == 0 || queries[len(queries)-1] != last {
			queries = append(queries, last)
		}
	}

	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries
}

// extractJSONArray strips prose and code fences around a JSON array reply.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
