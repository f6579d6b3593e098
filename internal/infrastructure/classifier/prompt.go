package classifier

import (
	"strings"

	"github.com/kirillkom/complaints-api/internal/core/domain"
)

const maxSnippet = 4000

func buildCategoryPrompt(text string) string {
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	names := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		names = append(names, string(c))
	}

	return `You are a customer support assistant.
Determine the category of the complaint below.
Options: ` + strings.Join(names, ", ") + `.
Answer with exactly one word from the options, in lower case, without punctuation.

Complaint:
'` + snippet + `'`
}
