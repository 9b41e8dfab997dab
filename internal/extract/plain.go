package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractPlain returns content as string, validating it is valid UTF-8.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return string(content), nil
}

// extractMarkdown renders the text of every leaf block on its own line.
// Soft and hard breaks inside a paragraph are kept; list items get a bullet.
func extractMarkdown(content []byte) (string, error) {
	src, _ := extractPlain(content)
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var lines []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindDocument, ast.KindList, ast.KindListItem, ast.KindBlockquote:
			return ast.WalkContinue, nil
		case ast.KindThematicBreak, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			segs := n.Lines()
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				lines = append(lines, string(seg.Value(source)))
			}
			return ast.WalkSkipChildren, nil
		}

		var buf bytes.Buffer
		inlineText(&buf, n, source)
		prefix := ""
		if p := n.Parent(); p != nil && p.Kind() == ast.KindListItem && p.FirstChild() == n {
			prefix = "• "
		}
		for i, l := range strings.Split(buf.String(), "\n") {
			if i == 0 {
				l = prefix + l
			}
			lines = append(lines, l)
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return "", err
	}
	return joinLines(lines), nil
}

func inlineText(buf *bytes.Buffer, n ast.Node, source []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(source))
		default:
			inlineText(buf, c, source)
		}
	}
}
