package classifier

import (
	"context"
	"fmt"
	"time"

	"ai-livecourse-be/internal/pkg/logger"
)

// IrrelevanceSource tags where a decisive irrelevance verdict came from.
type IrrelevanceSource string

const (
	SourceCache      IrrelevanceSource = "cache"
	SourceHeuristic  IrrelevanceSource = "heuristic"
	SourceClassifier IrrelevanceSource = "classifier"
)

// fallbackConfidenceFloor: the LLM fallback only settles irrelevance when it
// is at least this confident.
const fallbackConfidenceFloor = 0.6

// Decision is the pipeline's outcome for one text.
type Decision struct {
	Irrelevant bool
	Source     IrrelevanceSource // set only when Irrelevant
	Reason     string
	Class      *ClassResult // set only when not irrelevant
}

// Pipeline turns raw question text into a routing decision using layered
// stages that short-circuit at the first decisive one: cache lookup,
// heuristic scoring, LLM irrelevance fallback, then primary classification.
type Pipeline struct {
	classifier Classifier
	cache      *VerdictCache
	logger     logger.ILogger
}

func NewPipeline(c Classifier, cache *VerdictCache, log logger.ILogger) *Pipeline {
	if cache == nil {
		cache = NewVerdictCache(DefaultVerdictTTL)
	}
	return &Pipeline{classifier: c, cache: cache, logger: log}
}

// Run classifies text within the given topic context. recentIgnored carries
// normalized keys of recently ignored texts for duplicate suppression.
// A decisive irrelevance verdict from any stage is written back to the cache.
// A malformed primary classification is a hard error for this request.
func (p *Pipeline) Run(ctx context.Context, text string, topics TopicContext, recentIgnored []string) (*Decision, error) {
	started := time.Now()

	if hit, found := p.cache.Get(text); found {
		if hit.Irrelevant {
			return &Decision{Irrelevant: true, Source: SourceCache, Reason: hit.Reason}, nil
		}
	}

	h := HeuristicIrrelevance(text, recentIgnored)
	if h.Decided && h.Irrelevant {
		reason := fmt.Sprintf("%s_%d", h.Reason, h.Score)
		p.cache.Set(text, true, reason)
		return &Decision{Irrelevant: true, Source: SourceHeuristic, Reason: reason}, nil
	}

	if h.Uncertain {
		verdict, err := p.classifier.ClassifyIrrelevance(ctx, text)
		if err != nil {
			// Fallback failure is recoverable: the primary classifier
			// still gets a chance to route the text.
			p.logger.Warn("Classifier", "irrelevance fallback failed", map[string]interface{}{"error": err.Error()})
		} else if verdict.Irrelevant && verdict.Confidence >= fallbackConfidenceFloor {
			reason := "llm:" + truncateRationale(verdict.Rationale, 180)
			p.cache.Set(text, true, reason)
			return &Decision{Irrelevant: true, Source: SourceClassifier, Reason: reason}, nil
		}
	}

	cls, err := p.classifier.Classify(ctx, text, topics)
	if err != nil {
		return nil, fmt.Errorf("primary classification: %w", err)
	}

	p.logger.Info("Classifier", "classified", map[string]interface{}{
		"route":      string(cls.Route),
		"relevance":  cls.TopicRelevance,
		"needs_rag":  cls.NeedsRAG,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	return &Decision{Class: cls, Reason: cls.Reason}, nil
}

func truncateRationale(rationale string, max int) string {
	runes := []rune(rationale)
	if len(runes) <= max {
		return rationale
	}
	return string(runes[:max]) + "…"
}
