package extract

import (
	"strings"
	"unicode/utf8"
)

// Plain returns content verbatim, replacing invalid UTF-8 sequences.
func Plain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		content = []byte(strings.ToValidUTF8(string(content), "\ufffd"))
	}
	return string(content), nil
}
