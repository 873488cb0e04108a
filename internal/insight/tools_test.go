package insight

import (
	"context"
	"strings"
	"testing"
)

func TestToolRegistry(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(NewMindMapTool(0))
	reg.Register(NewWebSearchTool(&fakeSearcher{}, 0))
	reg.Register(NewMindMapTool(4)) // re-register replaces, keeps position

	names := reg.Names()
	if len(names) != 2 || names[0] != "mind_map" || names[1] != "web_search" {
		t.Errorf("Names() = %v, want [mind_map web_search]", names)
	}

	tool, ok := reg.Get("mind_map")
	if !ok {
		t.Fatal("mind_map should be registered")
	}
	if tool.(*MindMapTool).maxEdges != 4 {
		t.Error("re-registration should replace the earlier tool")
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("unregistered name should not resolve")
	}
}

func TestWebSearchTool(t *testing.T) {
	searcher := &fakeSearcher{hits: []SearchHit{
		{Title: "First", URL: "https://example.com/1", Snippet: "snippet one"},
		{Title: "Second", Snippet: "snippet two"},
	}}
	tool := NewWebSearchTool(searcher, 3)

	result, err := tool.Execute(context.Background(), "interval scheduling")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.OK {
		t.Fatal("result should be OK with hits present")
	}
	if !strings.Contains(result.Content, "snippet one") || !strings.Contains(result.Content, "snippet two") {
		t.Errorf("Content missing snippets: %q", result.Content)
	}
	if len(result.Citations) != 1 || result.Citations[0] != "https://example.com/1" {
		t.Errorf("Citations = %v, want the single non-empty URL", result.Citations)
	}
}

func TestWebSearchTool_Degraded(t *testing.T) {
	tool := NewWebSearchTool(nil, 3)
	result, err := tool.Execute(context.Background(), "q")
	if err != nil || result.OK {
		t.Errorf("nil searcher should degrade, got (%+v, %v)", result, err)
	}

	tool = NewWebSearchTool(&fakeSearcher{}, 3)
	result, err = tool.Execute(context.Background(), "q")
	if err != nil || result.OK {
		t.Errorf("empty results should degrade, got (%+v, %v)", result, err)
	}
}

func TestMindMapTool(t *testing.T) {
	tool := NewMindMapTool(2)

	text := "Spaced repetition strengthens memory. Spaced repetition strengthens recall. Gardens need rotation."
	result, err := tool.Execute(context.Background(), text)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.OK {
		t.Fatal("expected concept pairs")
	}

	lines := strings.Split(strings.TrimSpace(result.Content), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d edges, maxEdges is 2:\n%s", len(lines), result.Content)
	}
	if !strings.Contains(lines[0], "(2)") {
		t.Errorf("most frequent pair should lead, got %q", lines[0])
	}
}

func TestMindMapTool_NoPairs(t *testing.T) {
	tool := NewMindMapTool(8)
	result, err := tool.Execute(context.Background(), "a an it of")
	if err != nil || result.OK {
		t.Errorf("stopword-only text should yield no pairs, got (%+v, %v)", result, err)
	}
}
