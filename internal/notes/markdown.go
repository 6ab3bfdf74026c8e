package notes

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ExtractText flattens a markdown note field to plain text for embedding.
// Headings, emphasis markers and link targets carry no clinical meaning and
// only add noise to the vector.
func ExtractText(markdown string) string {
	trimmed := strings.TrimSpace(markdown)
	if trimmed == "" {
		return ""
	}
	md := goldmark.New()
	source := []byte(trimmed)
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				flush()
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			current.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				current.WriteByte(' ')
			}
		case *ast.Heading, *ast.ListItem, *ast.Blockquote:
			flush()
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				current.Write(segment.Value(source))
				current.WriteByte(' ')
			}
			flush()
		}
		return ast.WalkContinue, nil
	})
	flush()
	return strings.Join(parts, "\n")
}
