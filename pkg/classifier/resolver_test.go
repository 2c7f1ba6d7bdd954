package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRoute_Overrides(t *testing.T) {
	base := &ClassResult{TopicRelevance: RelevanceCurrent, Route: RouteChatNow, NeedsRAG: true}

	cases := []struct {
		name  string
		text  string
		llm   *ClassResult
		want  Route
	}{
		{"greeting wins over everything", "Boa noite, obrigado pela aula!", base, RouteIgnore},
		{"note intent without question mark", "anotar: melhorar os slides do módulo 2", base, RouteNote},
		{"final-session request", "podem responder isso ao fim da sessão?", base, RouteFinal},
		{"end-topic request", "deixa para o resumo do tópico", base, RouteEndTopic},
		{"future topic non-question ignored", "isso vem depois",
			&ClassResult{TopicRelevance: RelevanceFuture, Route: RoutePause}, RouteIgnore},
		{"short non-question ignored", "interessante esse ponto", base, RouteIgnore},
		{"short question chats now", "O que é um token?", base, RouteChatNow},
		{"medium question pauses", "Como a janela de contexto afeta o custo quando o prompt cresce muito? E os limites práticos disso hoje? Dá para contornar em produção sem perder qualidade?", base, RoutePause},
		{"long question defers to end of topic", strings.Repeat("Como exatamente esse mecanismo funciona em detalhes? ", 6), base, RouteEndTopic},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveRoute(tc.text, tc.llm)
			assert.Equal(t, tc.want, got.Route)
		})
	}
}

func TestResolveRoute_NoteBeatsLengthRules(t *testing.T) {
	// A long note-intent statement must not fall through to the length rules.
	text := "talvez incluir uma seção comparando as abordagens de chunking que vimos, registrar para a próxima edição do curso"
	got := ResolveRoute(text, &ClassResult{TopicRelevance: RelevanceCurrent, Route: RoutePause})
	assert.Equal(t, RouteNote, got.Route)
}

func TestResolveRoute_InvalidSuggestionCollapses(t *testing.T) {
	// An out-of-contract suggestion is not trusted; the deterministic rules
	// still apply on top of the IGNORE base.
	got := ResolveRoute("O que é RAG?", &ClassResult{TopicRelevance: RelevanceCurrent, Route: Route("BANANA")})
	assert.Equal(t, RouteChatNow, got.Route)
}

func TestResolveRoute_NeedsRAGClearedOnIgnore(t *testing.T) {
	got := ResolveRoute("valeu", &ClassResult{TopicRelevance: RelevanceCurrent, Route: RouteChatNow, NeedsRAG: true})
	assert.Equal(t, RouteIgnore, got.Route)
	assert.False(t, got.NeedsRAG)

	got = ResolveRoute("Qual a diferença entre os dois?", &ClassResult{TopicRelevance: RelevanceCurrent, Route: RouteChatNow, NeedsRAG: true})
	assert.True(t, got.NeedsRAG)
}
