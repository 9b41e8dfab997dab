package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/fumiama/go-docx"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// wtTag matches <w:t>text</w:t> with any attributes.
	wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	// paraEnd splits raw document XML into paragraphs.
	paraEnd = regexp.MustCompile(`</w:p>`)

	// Both attribute orders occur in the wild.
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// extractDOCX returns one line per paragraph and one per table row, cells
// separated by " | ". Packages go-docx cannot read or finds empty, such as
// those whose main part is not word/document.xml, are scanned for raw text
// runs instead.
func extractDOCX(content []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return scanDOCX(content)
	}
	var lines []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			lines = append(lines, paragraphText(it))
		case *docx.Table:
			lines = append(lines, tableLines(it)...)
		}
	}
	if text := joinLines(lines); text != "" {
		return text, nil
	}
	return scanDOCX(content)
}

func paragraphText(p *docx.Paragraph) string {
	var b strings.Builder
	if p.Properties != nil && p.Properties.NumProperties != nil {
		b.WriteString("• ")
	}
	for _, child := range p.Children {
		switch c := child.(type) {
		case *docx.Run:
			runText(&b, c)
		case *docx.Hyperlink:
			n := b.Len()
			runText(&b, &c.Run)
			if b.Len() == n {
				b.WriteString(c.Run.InstrText)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func runText(b *strings.Builder, r *docx.Run) {
	for _, rc := range r.Children {
		switch t := rc.(type) {
		case *docx.Text:
			b.WriteString(t.Text)
		case *docx.Tab:
			b.WriteByte('\t')
		}
	}
}

func tableLines(t *docx.Table) []string {
	var lines []string
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, p := range cell.Paragraphs {
				if s := paragraphText(p); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				cells = append(cells, strings.Join(parts, " "))
			}
			for _, nested := range cell.Tables {
				lines = append(lines, tableLines(nested)...)
			}
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return lines
}

// scanDOCX pulls <w:t> runs out of the main document part, one line per
// paragraph.
func scanDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	f, err := zr.Open(docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return "", fmt.Errorf("extract DOCX: read %s: %w", docPath, err)
	}

	var lines []string
	for _, para := range paraEnd.Split(string(data), -1) {
		var b strings.Builder
		for _, m := range wtTag.FindAllStringSubmatch(para, -1) {
			b.WriteString(html.UnescapeString(m[1]))
		}
		lines = append(lines, b.String())
	}
	return joinLines(lines), nil
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	f, err := zr.Open(contentTypesPath)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return ""
	}
	content := string(data)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}
