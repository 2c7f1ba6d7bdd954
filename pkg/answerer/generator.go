package answerer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ai-livecourse-be/pkg/course/session"
	"ai-livecourse-be/pkg/llm"
)

// LessonGenerator produces narration-ready lesson content for one subtask.
// The output is written for text-to-speech delivery: short sentences, no
// markdown structure, citations inline only.
type LessonGenerator struct {
	answerer *RAGAnswerer
}

func NewLessonGenerator(a *RAGAnswerer) *LessonGenerator {
	return &LessonGenerator{answerer: a}
}

var _ session.ContentGenerator = &LessonGenerator{}

var (
	ellipsisRun   = regexp.MustCompile(`\.{3,}`)
	trailingSpace = regexp.MustCompile(`\s+\n`)
	blankRun      = regexp.MustCompile(`\n{3,}`)
	spaceRun      = regexp.MustCompile(` {2,}`)
	summaryLead   = regexp.MustCompile(`(?i)Em resumo[,;:]?`)
)

func (g *LessonGenerator) GenerateLesson(ctx context.Context, topicID string, subtask session.Subtask) (string, []string, error) {
	docs, err := g.answerer.searcher.TopicDocs(ctx, topicID, retrievalK)
	if err != nil {
		return "", nil, fmt.Errorf("topic docs: %w", err)
	}

	goal := subtask.Goal
	if goal == "" {
		goal = subtask.Title
	}

	var prompt strings.Builder
	prompt.WriteString("Você está escrevendo conteúdo para ser lido por síntese de voz (TTS).\n")
	prompt.WriteString("Metadados:\n")
	prompt.WriteString(fmt.Sprintf("- Tópico: %s\n", topicID))
	prompt.WriteString(fmt.Sprintf("- Seção: %s\n", subtask.Title))
	prompt.WriteString(fmt.Sprintf("- Objetivo: %s\n", goal))
	prompt.WriteString("Contexto (com IDs para citações):\n")
	prompt.WriteString(contextSnippet(docs))
	prompt.WriteString("\nRequisitos de ESTILO (OBRIGATÓRIO seguir todos):\n")
	prompt.WriteString("- Frases curtas: ideal 12–20 palavras; nunca exceda 25.\n")
	prompt.WriteString("- Fluxo coeso com conectores: \"Primeiro\", \"Em seguida\", \"Depois\", \"Portanto\", \"Por fim\" quando adequado.\n")
	prompt.WriteString("- Tom didático, claro, neutro; evitar jargão não explicado.\n")
	prompt.WriteString("- Sem listas numeradas ou bullets; use parágrafos encadeados.\n")
	prompt.WriteString("- Inserir citações no meio do texto somente quando sustentarem uma afirmação, formato [[ref:N:docId]].\n")
	prompt.WriteString("- NÃO repetir bloco 'Referências:' ao final.\n")
	prompt.WriteString("- NÃO inventar IDs.\n")
	prompt.WriteString("- Último parágrafo inicia com \"Em resumo,\" trazendo síntese prática.\n")
	prompt.WriteString("Formato de saída: apenas parágrafos em português Brasil, sem cabeçalhos, sem markdown, sem lista de referências final.")

	raw, err := g.answerer.provider.Generate(ctx, prompt.String(), llm.WithTemperature(0.2))
	if err != nil {
		return "", nil, fmt.Errorf("generate lesson: %w", err)
	}

	refs := make([]string, len(docs))
	for i, d := range docs {
		refs[i] = fmt.Sprintf("[[ref:%d:%s]]", i+1, d.ID)
	}
	return normalizeForTTS(raw), refs, nil
}

func normalizeForTTS(text string) string {
	text = ellipsisRun.ReplaceAllString(text, "…")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	text = spaceRun.ReplaceAllString(text, " ")
	return summaryLead.ReplaceAllString(text, "Em resumo,")
}
