// Package prompts holds the generation prompt templates for the retrieval
// service.
package prompts

import (
	"fmt"
	"strings"
)

// NotAvailableSentinel is the fixed answer streamed when the indexed content
// cannot answer the question. Clients match on it verbatim.
const NotAvailableSentinel = "The answer is not available in the provided content."

// QASystemPrompt constrains the model to the retrieved context.
const QASystemPrompt = `You are a helpful assistant.

Your task:
- Answer ONLY using the context provided below.
- If a question references a specific file or topic, prioritize information from that file.
- Do NOT say things like "in chunk 1" or "the text says" — just answer naturally.
- If the user asks for a "brief" or "detailed" reply, follow that style.
- If the answer is not in the context, respond with: "` + NotAvailableSentinel + `"
- Do not use outside knowledge or guess.`

// ContextChunk is one retrieved chunk with its source attribution.
type ContextChunk struct {
	FileName string
	Text     string
}

// FormatQA renders the question-answering prompt: system rules, per-chunk
// file attribution, then the question.
func FormatQA(chunks []ContextChunk, question string) string {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		name := c.FileName
		if name == "" {
			name = "unknown"
		}
		blocks = append(blocks, fmt.Sprintf("From file: %s\n%s", name, c.Text))
	}
	context := strings.Join(blocks, "\n\n")

	return fmt.Sprintf("%s\n\nContext:\n\n%s\n\n---\n\nQuestion: %s\n\nAnswer:",
		QASystemPrompt, context, question)
}

// FormatSummary renders the summarization prompt over numbered sections.
func FormatSummary(chunks []ContextChunk) string {
	sections := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if c.FileName != "" {
			sections = append(sections, fmt.Sprintf("Section %d (from file: %s):\n%s", i+1, c.FileName, c.Text))
		} else {
			sections = append(sections, fmt.Sprintf("Section %d:\n%s", i+1, c.Text))
		}
	}
	context := strings.Join(sections, "\n\n")

	return fmt.Sprintf("You are an expert assistant. Summarize the following content clearly and concisely.\n\n%s\n\nSummary:",
		context)
}
