// Package chunker splits raw text into an ordered sequence of bounded-size
// pieces that concatenate back to the exact original. It prefers paragraph
// breaks, then sentence breaks, and only hard-cuts when no break exists in
// the tail window.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	paragraphBreak = "\n\n"
	sentenceBreak  = ". "

	// minTailWindow bounds how far back the boundary search looks. Small max
	// sizes still get a usable window.
	minTailWindow = 64
)

// Split cuts text into pieces of at most maxBytes bytes each. Every piece is
// non-empty, break delimiters stay attached to the end of the piece they
// close, and strings.Join(pieces, "") always reproduces text exactly.
func Split(text string, maxBytes int) ([]string, error) {
	if maxBytes < utf8.UTFMax {
		return nil, fmt.Errorf("max piece size %d is below the minimum of %d bytes", maxBytes, utf8.UTFMax)
	}

	if text == "" {
		return nil, nil
	}

	pieces := make([]string, 0, len(text)/maxBytes+1)
	rest := text
	for len(rest) > maxBytes {
		cut := boundaryCut(rest, maxBytes)
		pieces = append(pieces, rest[:cut])
		rest = rest[cut:]
	}
	if len(rest) > 0 {
		pieces = append(pieces, rest)
	}
	return pieces, nil
}

// Join is the inverse of Split.
func Join(pieces []string) string {
	return strings.Join(pieces, "")
}

// boundaryCut picks the byte offset to cut s at, given that len(s) > maxBytes.
// It searches the tail window of the maximal prefix for a paragraph break,
// then a sentence break, and falls back to a hard cut on a rune boundary so
// multi-byte characters are never torn apart.
func boundaryCut(s string, maxBytes int) int {
	end := maxBytes
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}

	tail := maxBytes / 4
	if tail < minTailWindow {
		tail = minTailWindow
	}
	if tail > end {
		tail = end
	}
	window := s[end-tail : end]

	if i := strings.LastIndex(window, paragraphBreak); i >= 0 {
		return end - tail + i + len(paragraphBreak)
	}
	if i := strings.LastIndex(window, sentenceBreak); i >= 0 {
		return end - tail + i + len(sentenceBreak)
	}
	return end
}
