package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool is a capability the agentic loop can dispatch to by name.
// New tools are added by registration, never by modifying the loop.
type Tool interface {
	Name() string
	Execute(ctx context.Context, step string) (ToolResult, error)
}

// ToolResult is the uniform output of a tool invocation.
type ToolResult struct {
	OK        bool
	Content   string
	Citations []string
}

// ToolRegistry holds registered tools keyed by name.
type ToolRegistry struct {
	tools map[string]Tool
	order []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool. A tool re-registered under the same name replaces
// the previous one.
func (r *ToolRegistry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	return append([]string(nil), r.order...)
}

// WebSearchTool exposes web search to the agentic loop.
type WebSearchTool struct {
	searcher WebSearcher
	width    int
}

// NewWebSearchTool wraps a searcher as a tool. width <= 0 defaults to 5.
func NewWebSearchTool(searcher WebSearcher, width int) *WebSearchTool {
	if width <= 0 {
		width = 5
	}
	return &WebSearchTool{searcher: searcher, width: width}
}

// Name implements Tool.
func (t *WebSearchTool) Name() string { return "web_search" }

// Execute runs the step as a search query and concatenates result snippets.
func (t *WebSearchTool) Execute(ctx context.Context, step string) (ToolResult, error) {
	if t.searcher == nil {
		return ToolResult{OK: false, Content: "web search unavailable"}, nil
	}

	hits := t.searcher.Search(ctx, step, t.width)
	if len(hits) == 0 {
		return ToolResult{OK: false, Content: "no results"}, nil
	}

	var sb strings.Builder
	citations := make([]string, 0, len(hits))
	for _, hit := range hits {
		fmt.Fprintf(&sb, "%s: %s\n", hit.Title, hit.Snippet)
		if hit.URL != "" {
			citations = append(citations, hit.URL)
		}
	}
	return ToolResult{OK: true, Content: sb.String(), Citations: citations}, nil
}

// MindMapTool extracts the dominant concept pairs from the evidence text it
// is given, a cheap structural view of the material the loop is reasoning
// over. Fully deterministic; no LLM involved.
type MindMapTool struct {
	maxEdges int
}

// NewMindMapTool creates the mind-map extraction tool. maxEdges <= 0
// defaults to 8.
func NewMindMapTool(maxEdges int) *MindMapTool {
	if maxEdges <= 0 {
		maxEdges = 8
	}
	return &MindMapTool{maxEdges: maxEdges}
}

// Name implements Tool.
func (t *MindMapTool) Name() string { return "mind_map" }

// Execute treats the step as source text and emits "a -- b" edges for the
// most frequent co-occurring term pairs, sentence by sentence.
func (t *MindMapTool) Execute(ctx context.Context, step string) (ToolResult, error) {
	_ = ctx

	pairCounts := make(map[[2]string]int)
	for _, sentence := range strings.FieldsFunc(step, func(r rune) bool { return r == '.' || r == '!' || r == '?' || r == '\n' }) {
		terms := filterStopwords(tokenize(sentence))
		seen := make(map[string]struct{})
		var distinct []string
		for _, term := range terms {
			if len(term) < 4 {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			distinct = append(distinct, term)
		}
		for i := 0; i < len(distinct); i++ {
			for j := i + 1; j < len(distinct); j++ {
				pairCounts[[2]string{distinct[i], distinct[j]}]++
			}
		}
	}

	if len(pairCounts) == 0 {
		return ToolResult{OK: false, Content: "no concept pairs found"}, nil
	}

	type edge struct {
		pair  [2]string
		count int
	}
	edges := make([]edge, 0, len(pairCounts))
	for pair, count := range pairCounts {
		edges = append(edges, edge{pair: pair, count: count})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].count != edges[j].count {
			return edges[i].count > edges[j].count
		}
		if edges[i].pair[0] != edges[j].pair[0] {
			return edges[i].pair[0] < edges[j].pair[0]
		}
		return edges[i].pair[1] < edges[j].pair[1]
	})

	var sb strings.Builder
	for i := 0; i < len(edges) && i < t.maxEdges; i++ {
		fmt.Fprintf(&sb, "%s -- %s (%d)\n", edges[i].pair[0], edges[i].pair[1], edges[i].count)
	}
	return ToolResult{OK: true, Content: sb.String()}, nil
}
