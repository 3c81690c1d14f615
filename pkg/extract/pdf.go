package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Pages returns the normalized text of every page. Pages without text yield
// EmptyPageMarker so page numbering stays visible to the reader.
func Pages(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, EmptyPageMarker)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = Normalize(text)
		if text == "" {
			text = EmptyPageMarker
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// PDF joins the pages with blank lines.
func PDF(content []byte) (string, error) {
	pages, err := Pages(content)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\n"), nil
}
