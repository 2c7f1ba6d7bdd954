package answerer

import (
	"context"
	"fmt"
	"strings"

	"ai-livecourse-be/pkg/llm"
	"ai-livecourse-be/pkg/rag"
)

const retrievalK = 3

// RAGAnswerer implements the answering capability: retrieve the top course
// materials, prompt the LLM as an instructor, and return cited prose with
// inline [[ref:N:docId]] markers plus a trailing references block.
type RAGAnswerer struct {
	provider llm.LLMProvider
	searcher *rag.Searcher
}

func NewRAGAnswerer(provider llm.LLMProvider, searcher *rag.Searcher) *RAGAnswerer {
	return &RAGAnswerer{provider: provider, searcher: searcher}
}

func (a *RAGAnswerer) Answer(ctx context.Context, question, topicID string) (string, []string, error) {
	docs, err := a.searcher.Search(ctx, question, topicID, retrievalK)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve: %w", err)
	}

	refs := make([]string, len(docs))
	for i, d := range docs {
		refs[i] = fmt.Sprintf("[[ref:%d:%s]]", i+1, d.ID)
	}

	var prompt strings.Builder
	prompt.WriteString("Você é um instrutor.\n")
	prompt.WriteString("Contexto:\n")
	prompt.WriteString(contextSnippet(docs))
	prompt.WriteString(fmt.Sprintf("\nPergunta: %s\n", question))
	prompt.WriteString("Responda em português brasileiro, conciso, incluindo citações inline já no texto usando [[ref:N:docId]].")

	text, err := a.provider.Generate(ctx, prompt.String(), llm.WithTemperature(0.2))
	if err != nil {
		return "", nil, fmt.Errorf("answer: %w", err)
	}
	full := strings.TrimSpace(text + "\nReferências: " + strings.Join(refs, " "))
	return full, refs, nil
}

func contextSnippet(docs []rag.Document) string {
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = fmt.Sprintf("[%d:%s] %s", i+1, d.ID, d.Text)
	}
	return strings.Join(lines, "\n")
}

// ShortAnswer trims a cited answer for inline chat delivery: the trailing
// references block goes away and only the first few lines survive.
func ShortAnswer(full string) string {
	const maxLines = 4

	if idx := strings.LastIndex(full, "Referências:"); idx >= 0 {
		full = strings.TrimSpace(full[:idx])
	}
	lines := nonEmptyLines(full)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
