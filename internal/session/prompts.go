package session

import (
	"fmt"
	"strings"

	"github.com/mknox/specforge/internal/document"
)

// Prompt assembly is deliberately minimal: the wording is not part of the
// engine's contract, but the prompt text is what gets fingerprinted, so each
// builder must be deterministic for a given document state.

func draftPrompt(description string) string {
	return fmt.Sprintf(
		"Write an initial product specification in Markdown for the following product.\n\nProduct description: %s\n",
		strings.TrimSpace(description))
}

func questionsPrompt(content, answered string) string {
	var b strings.Builder
	b.WriteString("Review the specification below and return clarifying questions as a JSON array of objects ")
	b.WriteString(`with "section", "question", "importance" (Critical/High/Medium), and "rationale" fields. `)
	b.WriteString("Return an empty array when nothing important remains.\n\n")
	b.WriteString("Specification:\n")
	b.WriteString(content)
	if answered != "" {
		b.WriteString("\n\nThese questions are already answered; do not ask them again:\n")
		b.WriteString(answered)
	}
	b.WriteString("\n")
	return b.String()
}

func incorporatePrompt(content, answered string) string {
	var b strings.Builder
	b.WriteString("Rewrite the specification below, incorporating the answered questions. ")
	b.WriteString("Return only the full updated Markdown document.\n\n")
	b.WriteString("Specification:\n")
	b.WriteString(content)
	b.WriteString("\n\nAnswered questions:\n")
	b.WriteString(answered)
	b.WriteString("\n")
	return b.String()
}

func finalizePrompt(content string) string {
	return fmt.Sprintf(
		"Produce the final, well-structured version of this specification. Return only the full Markdown document.\n\nSpecification:\n%s\n",
		content)
}

func titlePrompt(content string) string {
	return fmt.Sprintf(
		"Based on this specification, suggest a concise, memorable project name. Return only the name.\n\nSpecification:\n%s\n",
		content)
}

// answeredContext renders answered questions as the negative context block
// shared by the question and incorporation prompts.
func answeredContext(records []document.QuestionRecord) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	for i, record := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s", record.Text, record.Answer)
	}
	return b.String()
}
