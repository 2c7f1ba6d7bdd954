package classifier

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	shortNonQuestionLimit = 60
	chatNowLimit          = 140
	pauseLimit            = 300
)

var (
	greetingPattern     = regexp.MustCompile(`^(obrigado|valeu|ok|blz|beleza|oi|ol[áa]|boa noite|bom dia|boa tarde)\b`)
	endTopicPattern     = regexp.MustCompile(`(?i)(finaliza|finalize|resumo|encerrar|concluir)`)
	finalSessionPattern = regexp.MustCompile(`(?i)(ao?\s*fim\s*(da|do)\s*(sess[aã]o|curso)|no final.*sess[aã]o|no final.*curso)`)
	notePattern         = regexp.MustCompile(`(?i)(anota(r)?|nota|registrar|considerar|melhorar|ajustar|talvez incluir)`)
)

// Resolution is the final routing decision after deterministic overrides.
type Resolution struct {
	Route    Route
	NeedsRAG bool
}

// ResolveRoute applies deterministic override rules on top of the primary
// classifier's suggestion. The rule order is load-bearing: explicit intent
// patterns must win before the length-based rules get a chance to fire.
func ResolveRoute(textRaw string, llm *ClassResult) Resolution {
	text := strings.TrimSpace(textRaw)
	lower := strings.ToLower(text)
	isQuestion := strings.Contains(text, "?")
	length := utf8.RuneCountInString(text)

	isGreeting := greetingPattern.MatchString(lower)
	askEndTopic := endTopicPattern.MatchString(text)
	askFinalSession := finalSessionPattern.MatchString(text)
	isNote := notePattern.MatchString(lower) && !isQuestion

	route := llm.Route
	if !ValidRoute(route) {
		route = RouteIgnore
	}

	switch {
	case isGreeting:
		route = RouteIgnore
	case isNote:
		route = RouteNote
	case askFinalSession:
		route = RouteFinal
	case askEndTopic:
		route = RouteEndTopic
	case (llm.TopicRelevance == RelevanceFuture || llm.TopicRelevance == RelevanceOutOfScope) && !isQuestion:
		route = RouteIgnore
	case !isQuestion && length < shortNonQuestionLimit:
		route = RouteIgnore
	case isQuestion && length < chatNowLimit:
		route = RouteChatNow
	case isQuestion && length < pauseLimit:
		route = RoutePause
	case isQuestion:
		route = RouteEndTopic
	}

	return Resolution{
		Route:    route,
		NeedsRAG: llm.NeedsRAG && route != RouteIgnore,
	}
}
