package usecase

import (
	"fmt"
	"strings"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

func buildContextPrompt(contents, chunk string) string {
	return fmt.Sprintf(`<document>
%s
</document>
Here is the chunk we want to situate within the whole document
<chunk>
%s
</chunk>
Please give a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk. Answer only with the succinct context and nothing else.`, contents, chunk)
}

func buildAnswerPrompt(prompt string, chunks []domain.RerankedChunk) string {
	var contextBuilder strings.Builder
	for idx, chunk := range chunks {
		contextBuilder.WriteString(fmt.Sprintf("[%d] %s\n\n", idx+1, chunk.Text))
	}

	return fmt.Sprintf(`Answer the user question only from the context below.
If the context is insufficient, say it directly.

Question:
%s

Context:
%s`, prompt, contextBuilder.String())
}
