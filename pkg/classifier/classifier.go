package classifier

import "context"

// Route is the action bucket assigned to an audience question.
type Route string

const (
	RouteChatNow  Route = "CHAT_NOW"
	RoutePause    Route = "PAUSE"
	RouteEndTopic Route = "END_TOPIC"
	RouteFinal    Route = "FINAL"
	RouteNote     Route = "NOTE"
	RouteIgnore   Route = "IGNORE"
)

// Topic relevance buckets returned by the primary classifier.
const (
	RelevanceCurrent    = "CURRENT"
	RelevancePast       = "PAST"
	RelevanceFuture     = "FUTURE"
	RelevanceOutOfScope = "OUT_OF_SCOPE"
)

// ClassResult is the primary classifier's structured verdict.
type ClassResult struct {
	TopicRelevance string `json:"topicRelevance"` // CURRENT|PAST|FUTURE|OUT_OF_SCOPE
	Route          Route  `json:"route"`          // suggested route, before overrides
	NeedsRAG       bool   `json:"needsRAG"`
	Reason         string `json:"reason"`
}

// IrrelevanceResult is the fallback classifier's verdict for borderline texts.
type IrrelevanceResult struct {
	Irrelevant bool    `json:"irrelevant"`
	Confidence float32 `json:"confidence"` // 0.0-1.0
	Rationale  string  `json:"rationale"`
}

// TopicContext carries the course position handed to the primary classifier.
type TopicContext struct {
	CurrentTopic string
	FutureTopics []string
}

// Classifier is the external classification capability. Implementations must
// return structured data parseable into these shapes; malformed output is a
// hard error for the request, never a silent default.
type Classifier interface {
	Classify(ctx context.Context, text string, topics TopicContext) (*ClassResult, error)
	ClassifyIrrelevance(ctx context.Context, text string) (*IrrelevanceResult, error)
}

// ValidRoute reports whether the classifier suggested a route the resolver
// accepts as a base. Anything else collapses to IGNORE before overrides.
func ValidRoute(r Route) bool {
	switch r {
	case RouteChatNow, RoutePause, RouteEndTopic, RouteIgnore:
		return true
	}
	return false
}
