package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF emits one line per text row, top to bottom. Pages whose rows
// cannot be recovered fall back to the page's plain text.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err == nil && len(rows) > 0 {
			for _, row := range rows {
				lines = append(lines, rowText(row.Content))
			}
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		lines = append(lines, strings.Split(text, "\n")...)
	}
	return joinLines(lines), nil
}

func rowText(frags pdf.TextHorizontal) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.S)
	}
	return b.String()
}
