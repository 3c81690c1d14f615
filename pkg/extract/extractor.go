// Package extract pulls plain text out of uploaded PDF and text files for use
// as LLM context. Extraction is best effort: no OCR, no layout analysis.
package extract

import (
	"errors"
	"strings"
)

const (
	EmptyPageMarker = "[No text found on this page]"
	rule            = "--------------------------------------------------"
)

var ErrUnsupported = errors.New("unsupported file type")

// Extract returns the text of content based on its file type (extension
// without the dot). Types other than pdf, txt and md return ErrUnsupported.
func Extract(content []byte, fileType string) (string, error) {
	switch strings.ToLower(fileType) {
	case "pdf":
		return PDF(content)
	case "txt", "md":
		return Plain(content)
	default:
		return "", ErrUnsupported
	}
}

// Supported reports whether Extract understands fileType.
func Supported(fileType string) bool {
	switch strings.ToLower(fileType) {
	case "pdf", "txt", "md":
		return true
	}
	return false
}

// Banner wraps one file's text between a "Content of File" header and a
// dashed rule.
func Banner(name, text string) string {
	var b strings.Builder
	b.WriteString("Content of File: ")
	b.WriteString(name)
	b.WriteString("\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(rule)
	b.WriteString("\n\n")
	return b.String()
}
