package rag

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Document is one retrievable course-material chunk.
type Document struct {
	ID      string  `json:"id"`
	TopicID string  `json:"topic_id"`
	Title   string  `json:"title,omitempty"`
	Text    string  `json:"text"`
	Score   float64 `json:"score,omitempty"`
}

// MaterialSource lists course materials, optionally filtered by topic.
// Implemented by the gorm-backed repository.
type MaterialSource interface {
	ListMaterials(ctx context.Context, topicID string) ([]Document, error)
}

// Searcher ranks materials by token overlap with the query. Retrieval is
// deliberately lexical: materials are short curated chunks and the answerer
// only needs the top few.
type Searcher struct {
	source MaterialSource
}

func NewSearcher(source MaterialSource) *Searcher {
	return &Searcher{source: source}
}

var tokenSplit = regexp.MustCompile(`[^\p{L}0-9]+`)

// Search returns the top-k documents for the query, preferring the topic's
// corpus when topicID is set.
func (s *Searcher) Search(ctx context.Context, query, topicID string, k int) ([]Document, error) {
	corpus, err := s.source.ListMaterials(ctx, topicID)
	if err != nil {
		return nil, err
	}

	qTokens := make(map[string]struct{})
	for _, t := range tokenSplit.Split(strings.ToLower(query), -1) {
		if t != "" {
			qTokens[t] = struct{}{}
		}
	}

	scored := make([]Document, len(corpus))
	copy(scored, corpus)
	for i := range scored {
		tokens := tokenSplit.Split(strings.ToLower(scored[i].Text), -1)
		overlap := 0
		total := 0
		for _, t := range tokens {
			if t == "" {
				continue
			}
			total++
			if _, ok := qTokens[t]; ok {
				overlap++
			}
		}
		scored[i].Score = float64(overlap) / float64(total+1)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// TopicDocs returns up to k documents for a topic without query scoring.
func (s *Searcher) TopicDocs(ctx context.Context, topicID string, k int) ([]Document, error) {
	docs, err := s.source.ListMaterials(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if k > 0 && len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}
