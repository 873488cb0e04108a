package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkMarkdown_TitleExtraction(t *testing.T) {
	chunker := NewGoldmarkChunker()

	tests := []struct {
		name     string
		content  string
		filename string
		want     string
	}{
		{
			name:     "first H1 wins",
			content:  "# Spaced Repetition\n\nBody text.\n\n# Second Heading\n",
			filename: "notes.md",
			want:     "Spaced Repetition",
		},
		{
			name:     "H2 fallback",
			content:  "## Only A Subheading\n\nBody text.\n",
			filename: "notes.md",
			want:     "Only A Subheading",
		},
		{
			name:     "filename fallback",
			content:  "No headings in this document at all.\n",
			filename: "weekly review.md",
			want:     "Weekly Review",
		},
		{
			name:     "empty content",
			content:  "",
			filename: "empty note.md",
			want:     "Empty Note",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, _, err := chunker.ChunkMarkdown([]byte(tt.content), tt.filename)
			if err != nil {
				t.Fatalf("ChunkMarkdown() error = %v", err)
			}
			if title != tt.want {
				t.Errorf("title = %q, want %q", title, tt.want)
			}
		})
	}
}

func TestChunkMarkdown_SectionsPerHeading(t *testing.T) {
	chunker := NewGoldmarkChunker()

	content := "# Main Title\n\n" +
		"This introduction paragraph is comfortably long enough to stand alone as its own section.\n\n" +
		"## Details\n\n" +
		"The detail paragraph is also long enough that merging never collapses it into the intro.\n"

	_, sections, err := chunker.ChunkMarkdown([]byte(content), "doc.md")
	if err != nil {
		t.Fatalf("ChunkMarkdown() error = %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2: %+v", len(sections), sections)
	}

	if sections[0].HeadingPath != "# Main Title" {
		t.Errorf("sections[0].HeadingPath = %q", sections[0].HeadingPath)
	}
	if !strings.Contains(sections[0].Text, "introduction paragraph") {
		t.Errorf("sections[0].Text = %q", sections[0].Text)
	}

	if sections[1].HeadingPath != "# Main Title > ## Details" {
		t.Errorf("sections[1].HeadingPath = %q", sections[1].HeadingPath)
	}
	if sections[1].Index != 1 {
		t.Errorf("sections[1].Index = %d, want 1", sections[1].Index)
	}
}

func TestChunkMarkdown_HeadingStackPops(t *testing.T) {
	chunker := NewGoldmarkChunker()

	content := "# Top\n\n" +
		"Opening text long enough to survive the tiny-section merge pass without being folded away.\n\n" +
		"## First Branch\n\n" +
		"Branch one body text, also long enough to stand on its own after the merge pass runs.\n\n" +
		"## Second Branch\n\n" +
		"Branch two body text, likewise long enough to stand on its own after the merge pass.\n"

	_, sections, err := chunker.ChunkMarkdown([]byte(content), "doc.md")
	if err != nil {
		t.Fatalf("ChunkMarkdown() error = %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(sections))
	}
	if sections[2].HeadingPath != "# Top > ## Second Branch" {
		t.Errorf("sections[2].HeadingPath = %q, sibling heading should replace the first branch", sections[2].HeadingPath)
	}
}

func TestChunkMarkdown_TinySectionsMerge(t *testing.T) {
	chunker := NewGoldmarkChunker()

	content := "# Stub\n\nshort\n\n# Real Section\n\n" +
		"This second section has plenty of text and absorbs the stub that came before it.\n"

	_, sections, err := chunker.ChunkMarkdown([]byte(content), "doc.md")
	if err != nil {
		t.Fatalf("ChunkMarkdown() error = %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1 (tiny section merged forward)", len(sections))
	}
	if !strings.Contains(sections[0].Text, "short") || !strings.Contains(sections[0].Text, "absorbs the stub") {
		t.Errorf("merged section text = %q", sections[0].Text)
	}
	if sections[0].Index != 0 {
		t.Errorf("merged section Index = %d, want 0", sections[0].Index)
	}
}

func TestChunkMarkdown_CodeBlocksKept(t *testing.T) {
	chunker := NewGoldmarkChunker()

	content := "# Code Note\n\n" +
		"Explanatory prose long enough that the merge pass keeps this section in one piece.\n\n" +
		"```go\nfunc main() {}\n```\n"

	_, sections, err := chunker.ChunkMarkdown([]byte(content), "doc.md")
	if err != nil {
		t.Fatalf("ChunkMarkdown() error = %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if !strings.Contains(sections[0].Text, "func main() {}") {
		t.Errorf("code block content missing from section text: %q", sections[0].Text)
	}
}

func TestChunkMarkdown_TableRows(t *testing.T) {
	chunker := NewGoldmarkChunker()

	content := "# Table Note\n\n" +
		"Prose before the table, long enough that this section is not folded into anything.\n\n" +
		"| Col A | Col B |\n|---|---|\n| one | two |\n"

	_, sections, err := chunker.ChunkMarkdown([]byte(content), "doc.md")
	if err != nil {
		t.Fatalf("ChunkMarkdown() error = %v", err)
	}
	if len(sections) == 0 {
		t.Fatal("expected sections")
	}
	if !strings.Contains(sections[0].Text, "one | two") {
		t.Errorf("table cells missing from section text: %q", sections[0].Text)
	}
}

func TestSplitChildren_UnderLimit(t *testing.T) {
	chunker := NewGoldmarkChunker()

	got := chunker.SplitChildren(Section{Text: "  a short section  "})
	if len(got) != 1 || got[0] != "a short section" {
		t.Errorf("SplitChildren() = %v, want the single trimmed text", got)
	}

	if got := chunker.SplitChildren(Section{Text: "   "}); got != nil {
		t.Errorf("blank section should yield no children, got %v", got)
	}
}

func TestSplitChildren_ParagraphBoundary(t *testing.T) {
	chunker := NewGoldmarkChunker()

	para := strings.Repeat("a", 400)
	section := Section{Text: para + "\n\n" + para}

	got := chunker.SplitChildren(section)
	if len(got) != 2 {
		t.Fatalf("got %d children, want 2 (split on the paragraph break): %v", len(got), got)
	}
	for i, child := range got {
		if child != para {
			t.Errorf("child[%d] = %d runes, want the intact paragraph", i, utf8.RuneCountInString(child))
		}
	}
}

func TestSplitChildren_SentenceBoundary(t *testing.T) {
	chunker := NewGoldmarkChunker()

	sentence := strings.Repeat("b", 300) + ". "
	section := Section{Text: strings.Repeat(sentence, 4)}

	got := chunker.SplitChildren(section)
	if len(got) < 2 {
		t.Fatalf("got %d children, long single-line text must split: %v", len(got), got)
	}
	for i, child := range got {
		if n := utf8.RuneCountInString(child); n > maxChildSize {
			t.Errorf("child[%d] is %d runes, exceeds %d", i, n, maxChildSize)
		}
		if i < len(got)-1 && !strings.HasSuffix(child, ".") {
			t.Errorf("child[%d] should end at a sentence boundary, got %q...", i, child[len(child)-10:])
		}
	}
}

func TestSplitChildren_NoBoundary(t *testing.T) {
	chunker := NewGoldmarkChunker()

	section := Section{Text: strings.Repeat("c", 1500)}
	got := chunker.SplitChildren(section)
	if len(got) != 3 {
		t.Fatalf("got %d children, want 3 hard splits (700+700+100)", len(got))
	}
	for i, child := range got {
		if n := utf8.RuneCountInString(child); n > maxChildSize {
			t.Errorf("child[%d] is %d runes, exceeds %d", i, n, maxChildSize)
		}
	}
}
