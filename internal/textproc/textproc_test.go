package textproc

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "hyphenated line break rejoined",
			input:    "trans-\nformer models",
			expected: "transformer models",
		},
		{
			name:     "newlines folded to spaces",
			input:    "line one\nline two\n\nline three",
			expected: "line one line two line three",
		},
		{
			name:     "repeated whitespace collapsed",
			input:    "too   many    spaces",
			expected: "too many spaces",
		},
		{
			name:     "figure caption removed",
			input:    "Before. Figure 3 shows the architecture. After.",
			expected: "Before. After.",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  padded  ",
			expected: "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.input)
			if got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestChunkKeepsSentencesWhole(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here."
	chunks := Chunk(text, 8)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0] != "First sentence here. Second sentence here." {
		t.Errorf("unexpected first chunk: %q", chunks[0])
	}
	if chunks[1] != "Third sentence here." {
		t.Errorf("unexpected second chunk: %q", chunks[1])
	}
}

func TestChunkSingleShortText(t *testing.T) {
	chunks := Chunk("Just one short sentence.", 300)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Just one short sentence." {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}

func TestChunkOversizedSentenceBecomesOwnChunk(t *testing.T) {
	long := strings.Repeat("word ", 50)
	text := "Short lead. " + strings.TrimSpace(long) + ". Short tail."

	chunks := Chunk(text, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0] != "Short lead." {
		t.Errorf("unexpected lead chunk: %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "word word") {
		t.Errorf("oversized sentence not isolated: %q", chunks[1])
	}
}

func TestChunkRespectsWordBudget(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("Sentence number with exactly six words. ")
	}
	chunks := Chunk(strings.TrimSpace(b.String()), 50)
	if len(chunks) < 10 {
		t.Fatalf("expected many chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len(strings.Fields(c)); n >= 50+6 {
			t.Errorf("chunk %d has %d words, exceeds budget", i, n)
		}
	}
}

func TestChunkEmptyInput(t *testing.T) {
	if chunks := Chunk("", 300); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %#v", chunks)
	}
}

func TestExtractMetadata(t *testing.T) {
	text := "Jane Doe, John Smith. Attention Revisited. arXiv:2101.12345v2, 2021. " +
		"Earlier work from 1998 and 2019 is cited."

	md := ExtractMetadata(text)

	if md.ArxivID != "2101.12345" {
		t.Errorf("ArxivID = %q, want %q", md.ArxivID, "2101.12345")
	}
	if md.Year != 2021 {
		t.Errorf("Year = %d, want 2021", md.Year)
	}
	if md.AuthorsRaw == "" {
		t.Error("expected a non-empty author block")
	}
}

func TestExtractMetadataNothingFound(t *testing.T) {
	md := ExtractMetadata("plain prose with no identifiers at all")
	if md.ArxivID != "" {
		t.Errorf("ArxivID = %q, want empty", md.ArxivID)
	}
	if md.Year != 0 {
		t.Errorf("Year = %d, want 0", md.Year)
	}
}
