package indexer

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const (
	// minSectionSize is the rune count under which a section is merged into
	// its neighbour instead of standing alone.
	minSectionSize = 50
	// maxChildSize is the rune ceiling per child chunk (targets ~450 tokens
	// for a 512-token embedding model).
	maxChildSize = 700
)

// GoldmarkChunker chunks markdown content using goldmark AST parsing into a
// two-level hierarchy: heading-bounded sections (parents) and size-bounded
// child texts within each section.
type GoldmarkChunker struct {
	parser goldmark.Markdown
}

// NewGoldmarkChunker creates a new goldmark chunker.
func NewGoldmarkChunker() *GoldmarkChunker {
	return &GoldmarkChunker{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// ChunkMarkdown parses markdown content and returns the document title and
// its heading-bounded sections. Empty content yields the filename-derived
// title and no sections.
func (c *GoldmarkChunker) ChunkMarkdown(content []byte, filename string) (string, []Section, error) {
	if len(content) == 0 {
		return titleFromFilename(filename), nil, nil
	}

	doc := c.parser.Parser().Parse(text.NewReader(content))
	title := extractTitle(doc, content, filename)
	sections := c.buildSections(doc, content, title)
	sections = mergeTinySections(sections)

	return title, sections, nil
}

// SplitChildren splits a section's text into child texts of at most
// maxChildSize runes, preferring paragraph, then line, then sentence
// boundaries. Sizes are measured in runes for consistency with token
// estimation.
func (c *GoldmarkChunker) SplitChildren(section Section) []string {
	trimmed := strings.TrimSpace(section.Text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) <= maxChildSize {
		return []string{trimmed}
	}

	var children []string
	runes := []rune(trimmed)
	start := 0

	for start < len(runes) {
		end := start + maxChildSize
		if end >= len(runes) {
			children = append(children, strings.TrimSpace(string(runes[start:])))
			break
		}

		window := string(runes[start:end])
		split := end
		if boundary := strings.LastIndex(window, "\n\n"); boundary != -1 {
			split = start + utf8.RuneCountInString(window[:boundary]) + 2
		} else if boundary := strings.LastIndex(window, "\n"); boundary != -1 {
			split = start + utf8.RuneCountInString(window[:boundary]) + 1
		} else if boundary := strings.LastIndex(window, ". "); boundary != -1 {
			split = start + utf8.RuneCountInString(window[:boundary]) + 2
		}

		child := strings.TrimSpace(string(runes[start:split]))
		if child != "" {
			children = append(children, child)
		}
		start = split
	}

	return children
}

// extractTitle picks the document title: first H1, else first H2, else the
// filename without extension with words capitalized.
func extractTitle(doc ast.Node, content []byte, filename string) string {
	var firstH1, firstH2 string

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		headingText := nodeText(heading, content)
		if heading.Level == 1 && firstH1 == "" {
			firstH1 = headingText
			return ast.WalkStop, nil
		}
		if heading.Level == 2 && firstH2 == "" {
			firstH2 = headingText
		}
		return ast.WalkContinue, nil
	})

	if firstH1 != "" {
		return firstH1
	}
	if firstH2 != "" {
		return firstH2
	}
	return titleFromFilename(filename)
}

func titleFromFilename(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	words := strings.Fields(name)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// headingInfo tracks heading level and text for building heading paths.
type headingInfo struct {
	level int
	text  string
}

// buildSections walks the AST and cuts a section at every heading. Content
// before the first heading is collected under the document title.
func (c *GoldmarkChunker) buildSections(doc ast.Node, content []byte, docTitle string) []Section {
	var sections []Section
	var current *Section
	var stack []headingInfo
	index := 0

	flush := func() {
		if current != nil && strings.TrimSpace(current.Text) != "" {
			sections = append(sections, *current)
			index++
		}
		current = nil
	}
	appendText := func(s string) {
		if current == nil {
			current = &Section{Index: index, HeadingPath: "# " + docTitle}
		}
		current.Text += s
	}
	ensureNewline := func() {
		if current != nil && current.Text != "" && !strings.HasSuffix(current.Text, "\n") {
			current.Text += "\n"
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			flush()
			for len(stack) > 0 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headingInfo{level: node.Level, text: nodeText(node, content)})
			current = &Section{Index: index, HeadingPath: headingPath(stack)}
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			appendText(string(node.Segment.Value(content)))

		case *ast.String:
			appendText(string(node.Value))

		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				appendText(string(seg.Value(content)))
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.List, *ast.ListItem:
			ensureNewline()

		default:
			kind := n.Kind().String()
			if strings.Contains(kind, "TableRow") || strings.Contains(kind, "TableHeader") {
				ensureNewline()
				appendText(tableRowText(n, content) + "\n")
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	// A document with no headings and no walkable text still gets one
	// section carrying the raw content.
	if len(sections) == 0 && strings.TrimSpace(string(content)) != "" {
		sections = append(sections, Section{
			Index:       0,
			HeadingPath: "# " + docTitle,
			Text:        string(content),
		})
	}

	return sections
}

// headingPath renders the heading stack as "# A > ## B > ### C".
func headingPath(stack []headingInfo) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = strings.Repeat("#", h.level) + " " + h.text
	}
	return strings.Join(parts, " > ")
}

// nodeText extracts the plain text content of a node and its children.
func nodeText(n ast.Node, content []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(content))
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

// tableRowText extracts a table row's cells joined with pipe separators.
func tableRowText(row ast.Node, content []byte) string {
	var cells []string
	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(node.Kind().String(), "TableCell") {
			cells = append(cells, nodeText(node, content))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(cells, " | ")
}

// mergeTinySections merges sections below the minimum size into the next
// section, and collapses consecutive sections sharing a heading path.
func mergeTinySections(sections []Section) []Section {
	if len(sections) == 0 {
		return sections
	}

	var result []Section
	i := 0
	for i < len(sections) {
		current := sections[i]

		for i+1 < len(sections) {
			next := sections[i+1]
			samePath := current.HeadingPath != "" && current.HeadingPath == next.HeadingPath
			tiny := utf8.RuneCountInString(current.Text) < minSectionSize
			if !samePath && !tiny {
				break
			}
			current.Text = strings.TrimRight(current.Text, "\n") + "\n\n" + next.Text
			i++
		}

		result = append(result, current)
		i++
	}

	for i := range result {
		result[i].Index = i
	}
	return result
}
