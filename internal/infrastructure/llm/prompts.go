// Package llm holds prompt construction and response parsing shared by the
// completion model providers.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

func BuildRewritePrompt(prompt string) string {
	var b strings.Builder
	b.WriteString("Given the following user message, rewrite it into 5 distinct queries that could be used to search for relevant information, and provide additional keywords related to the query.\n")
	b.WriteString("Each query should focus on different aspects or potential interpretations of the original message.\n")
	b.WriteString("Each keyword should be derived from an interpretation of the provided user message.\n\n")
	b.WriteString("Respond with a JSON object of the shape {\"queries\": [...], \"keywords\": [...]} and nothing else.\n")
	b.WriteString("The queries should be similar to the user's query, concise but comprehensive. The keywords are used for full-text search.\n\n")
	b.WriteString("User message: ")
	b.WriteString(prompt)
	return b.String()
}

// ParseRewrite decodes the model's structured rewrite output. Models wrap
// JSON in prose often enough that the outermost object is extracted first.
func ParseRewrite(raw string) (domain.Rewrite, error) {
	var rewrite domain.Rewrite
	if err := json.Unmarshal([]byte(ExtractJSONObject(raw)), &rewrite); err != nil {
		return domain.Rewrite{}, fmt.Errorf("parse rewrite json: %w", err)
	}
	if rewrite.Queries == nil {
		rewrite.Queries = []string{}
	}
	if rewrite.Keywords == nil {
		rewrite.Keywords = []string{}
	}
	return rewrite, nil
}

func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
