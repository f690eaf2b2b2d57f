package textproc

import (
	"regexp"
	"strconv"
	"strings"
)

// Metadata holds lightweight bibliographic hints pulled from cleaned text.
// All fields are best-effort; zero values mean "not found".
type Metadata struct {
	ArxivID    string `json:"arxiv_id,omitempty"`
	Year       int    `json:"year,omitempty"`
	AuthorsRaw string `json:"authors_raw,omitempty"`
}

var (
	arxivRe = regexp.MustCompile(`(?i)arXiv:(\d{4}\.\d{5})`)
	yearRe  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	// the author block of a paper sits in the first few hundred characters,
	// ending where the arXiv identifier or a year appears
	authorBlockRe = regexp.MustCompile(`(?im)^[\[\d\]]?[\s\S]{0,300}?\.?arXiv|\d{4}`)
)

// ExtractMetadata scans cleaned text for an arXiv identifier, the most recent
// plausible publication year, and the raw leading author block.
func ExtractMetadata(text string) Metadata {
	var md Metadata

	if m := arxivRe.FindStringSubmatch(text); m != nil {
		md.ArxivID = m[1]
	}

	for _, m := range yearRe.FindAllString(text, -1) {
		if y, err := strconv.Atoi(m); err == nil && y > md.Year {
			md.Year = y
		}
	}

	if m := authorBlockRe.FindString(text); m != "" {
		md.AuthorsRaw = strings.TrimSpace(m)
	}

	return md
}
