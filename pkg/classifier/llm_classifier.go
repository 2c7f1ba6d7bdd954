package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-livecourse-be/pkg/llm"
)

// LLMClassifier implements the Classifier capability on top of a generic LLM
// provider. Both calls demand strict JSON; anything unparseable is returned
// as an error so the caller can surface it instead of routing blindly.
type LLMClassifier struct {
	provider llm.LLMProvider
}

var _ Classifier = &LLMClassifier{}

func NewLLMClassifier(provider llm.LLMProvider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, topics TopicContext) (*ClassResult, error) {
	future := topics.FutureTopics
	if len(future) > 8 {
		future = future[:8]
	}
	futureList := strings.Join(future, "\n- ")
	if futureList == "" {
		futureList = "Nenhum"
	}
	currentTopic := topics.CurrentTopic
	if currentTopic == "" {
		currentTopic = "N/A"
	}

	var prompt strings.Builder
	prompt.WriteString("Classifique a pergunta de um aluno sobre um curso.\n")
	prompt.WriteString("Retorne STRICT JSON com as chaves: topicRelevance (CURRENT|PAST|FUTURE|OUT_OF_SCOPE), route (CHAT_NOW|PAUSE|END_TOPIC|IGNORE), needsRAG (true|false), reason (string curta).\n")
	prompt.WriteString("Regras:\n")
	prompt.WriteString("1. FUTURE se falar explicitamente de tópicos futuros listados.\n")
	prompt.WriteString("2. OUT_OF_SCOPE se não relaciona a nenhum tópico (atual ou futuros) ou é social.\n")
	prompt.WriteString("3. Se pede um resumo/conclusão → route=END_TOPIC (apenas se relevance CURRENT ou PAST).\n")
	prompt.WriteString("4. Perguntas muito curtas objetivas → route=CHAT_NOW.\n")
	prompt.WriteString("5. Perguntas analíticas/explicações medianas → route=PAUSE.\n")
	prompt.WriteString("6. FUTURE ou OUT_OF_SCOPE → route=IGNORE.\n")
	prompt.WriteString("7. needsRAG true se exige comparação, dados, estatísticas, \"por que\", fontes.\n")
	prompt.WriteString("Contexto:\n")
	prompt.WriteString(fmt.Sprintf("Tópico atual: %s\n", currentTopic))
	prompt.WriteString(fmt.Sprintf("Tópicos futuros potenciais:\n- %s\n", futureList))
	prompt.WriteString(fmt.Sprintf("Pergunta: %q\nJSON:", text))

	response, err := c.provider.Generate(ctx, prompt.String(), llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("classify: no JSON found in classifier output")
	}
	var result ClassResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("classify: malformed classifier output: %w", err)
	}
	result.TopicRelevance = strings.ToUpper(result.TopicRelevance)
	result.Route = Route(strings.ToUpper(string(result.Route)))
	if result.TopicRelevance == "" {
		result.TopicRelevance = RelevanceCurrent
	}
	if result.Reason == "" {
		result.Reason = "llm"
	}
	return &result, nil
}

func (c *LLMClassifier) ClassifyIrrelevance(ctx context.Context, text string) (*IrrelevanceResult, error) {
	var prompt strings.Builder
	prompt.WriteString("Determine se o texto do usuário deve ser tratado como IRRELEVANTE para um curso técnico atual.\n")
	prompt.WriteString("Regras IRRELEVANTE: vazio, só pontuação, só emoji, agradecimento curto sem pergunta, fora de escopo claro, spam.\n")
	prompt.WriteString("Se for pergunta técnica ou potencialmente útil => RELEVANTE.\n")
	prompt.WriteString("Retorne JSON: {\"irrelevant\":true|false, \"confidence\":0-1, \"rationale\":\"string curta\"}\n")
	prompt.WriteString(fmt.Sprintf("Texto: %q\nJSON:", text))

	response, err := c.provider.Generate(ctx, prompt.String(), llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("classify irrelevance: %w", err)
	}

	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("classify irrelevance: no JSON found in classifier output")
	}
	var result IrrelevanceResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("classify irrelevance: malformed classifier output: %w", err)
	}
	if result.Rationale == "" {
		result.Rationale = "llm"
	}
	return &result, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
