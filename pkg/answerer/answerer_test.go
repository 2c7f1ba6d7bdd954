package answerer

import (
	"context"
	"strings"
	"testing"

	"ai-livecourse-be/pkg/course/session"
	"ai-livecourse-be/pkg/llm"
	"ai-livecourse-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	lastPrompt string
	response   string
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.response, nil
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, options ...llm.Option) (string, error) {
	return f.response, nil
}

type memorySource struct {
	docs []rag.Document
}

func (m *memorySource) ListMaterials(ctx context.Context, topicID string) ([]rag.Document, error) {
	var out []rag.Document
	for _, d := range m.docs {
		if topicID == "" || d.TopicID == topicID {
			out = append(out, d)
		}
	}
	return out, nil
}

func testDocs() []rag.Document {
	return []rag.Document{
		{ID: "d1", TopicID: "t1", Title: "Tokens", Text: "Tokens são unidades mínimas de texto processadas pelo modelo."},
		{ID: "d2", TopicID: "t1", Title: "Contexto", Text: "A janela de contexto limita quantos tokens entram de uma vez."},
		{ID: "d3", TopicID: "t2", Title: "RAG", Text: "RAG combina busca e geração para reduzir alucinações."},
	}
}

func TestAnswerBuildsPromptAndRefs(t *testing.T) {
	provider := &fakeProvider{response: "Tokens são as unidades do modelo [[ref:1:d1]]."}
	a := NewRAGAnswerer(provider, rag.NewSearcher(&memorySource{docs: testDocs()}))

	full, refs, err := a.Answer(context.Background(), "O que são tokens?", "t1")
	require.NoError(t, err)

	assert.Contains(t, provider.lastPrompt, "Pergunta: O que são tokens?")
	assert.Contains(t, provider.lastPrompt, "Tokens são unidades mínimas")
	assert.NotContains(t, provider.lastPrompt, "alucinações", "other topics stay out of the context")

	assert.Contains(t, full, "Referências:")
	require.NotEmpty(t, refs)
	assert.Equal(t, "[[ref:1:d1]]", refs[0])
}

func TestShortAnswer(t *testing.T) {
	full := "Primeira linha.\nSegunda linha.\n\nTerceira linha.\nQuarta linha.\nQuinta linha.\nReferências: [[ref:1:d1]]"
	short := ShortAnswer(full)

	assert.NotContains(t, short, "Referências:")
	lines := strings.Split(short, "\n")
	assert.Len(t, lines, 4, "inline delivery keeps only the first lines")
	assert.Equal(t, "Primeira linha.", lines[0])
}

func TestNormalizeForTTS(t *testing.T) {
	raw := "Primeiro....  o modelo lê tokens.  \n\n\n\nEm Resumo:  tudo é previsão."
	got := normalizeForTTS(raw)

	assert.NotContains(t, got, "....")
	assert.Contains(t, got, "…")
	assert.NotContains(t, got, "\n\n\n")
	assert.NotContains(t, got, "  ")
	assert.Contains(t, got, "Em resumo, tudo é previsão.")
}

func TestGenerateLessonUsesTopicDocs(t *testing.T) {
	provider := &fakeProvider{response: "Primeiro, tokens. Em resumo, contexto importa [[ref:1:d1]]."}
	a := NewRAGAnswerer(provider, rag.NewSearcher(&memorySource{docs: testDocs()}))
	g := NewLessonGenerator(a)

	content, refs, err := g.GenerateLesson(context.Background(), "t1", session.Subtask{
		ID:    "s1",
		Title: "Tokens e contexto",
		Goal:  "Explicar tokenização",
	})
	require.NoError(t, err)

	assert.Contains(t, provider.lastPrompt, "Objetivo: Explicar tokenização")
	assert.Contains(t, provider.lastPrompt, "síntese de voz")
	assert.Contains(t, content, "Em resumo,")
	assert.Len(t, refs, 2, "both t1 docs are citeable")
}
