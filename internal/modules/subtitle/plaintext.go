package subtitle

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// ParseText parses untimed plain-text content into one cue per sentence.
// Markdown files are reduced to their text content first. An empty result
// after trimming is a parse failure.
func (p *Parser) ParseText(content, filename string) ([]Cue, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".md" || ext == ".markdown" {
		content = markdownToText(content)
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	if content == "" {
		return nil, fmt.Errorf("text: %w", errEmptyText)
	}

	var cues []Cue
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, sentence := range SplitSentences(line) {
			cues = append(cues, Cue{Text: sentence})
		}
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("text: %w", errEmptyText)
	}
	return cues, nil
}

var markdownEngine = goldmark.New()

// markdownToText walks the markdown AST and keeps only text content,
// paragraph by paragraph.
func markdownToText(src string) string {
	source := []byte(src)
	doc := markdownEngine.Parser().Parse(gmtext.NewReader(source))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if !entering {
				buf.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
