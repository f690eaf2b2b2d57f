package textproc

import "strings"

// DefaultChunkMaxWords is the per-chunk word budget used when none is
// configured. It keeps chunks comfortably under the embedding model's context
// window.
const DefaultChunkMaxWords = 300

// splitSentences splits text at whitespace that follows a sentence
// terminator. Terminators stay attached to their sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '?', '!':
			// consume the run of terminators, then break at whitespace
			j := i
			for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '?' || runes[j+1] == '!') {
				j++
			}
			if j+1 < len(runes) && isSpace(runes[j+1]) {
				sentences = append(sentences, string(runes[start:j+1]))
				k := j + 1
				for k < len(runes) && isSpace(runes[k]) {
					k++
				}
				start = k
				i = k - 1
			} else {
				i = j
			}
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// Chunk splits cleaned text into blocks of whole sentences, each under
// maxWords whitespace-separated words. A single sentence longer than the
// budget becomes its own chunk rather than being split mid-sentence.
func Chunk(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultChunkMaxWords
	}

	sentences := splitSentences(text)
	var chunks []string
	var b strings.Builder
	words := 0

	for _, sentence := range sentences {
		n := len(strings.Fields(sentence))
		if words+n < maxWords {
			b.WriteString(sentence)
			b.WriteString(" ")
			words += n
			continue
		}
		if b.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(b.String()))
			b.Reset()
		}
		b.WriteString(sentence)
		b.WriteString(" ")
		words = n
	}
	if b.Len() > 0 {
		if c := strings.TrimSpace(b.String()); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}
