// Package textproc normalizes extracted document text and prepares it for
// embedding: cleaning, sentence-aware chunking and lightweight metadata
// extraction for academic sources.
package textproc

import (
	"regexp"
	"strings"
)

var (
	hyphenBreakRe   = regexp.MustCompile(`-\n`)
	lineBreakRe     = regexp.MustCompile(`\n+`)
	multiSpaceRe    = regexp.MustCompile(`\s{2,}`)
	figureCaptionRe = regexp.MustCompile(`(?i)Figure\s\d+[^.]*\.`)
)

// Clean normalizes raw extracted text: rejoins words hyphenated across line
// breaks, folds newlines into spaces, collapses repeated whitespace and strips
// figure captions that survive PDF extraction.
func Clean(raw string) string {
	s := hyphenBreakRe.ReplaceAllString(raw, "")
	s = lineBreakRe.ReplaceAllString(s, " ")
	s = figureCaptionRe.ReplaceAllString(s, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
