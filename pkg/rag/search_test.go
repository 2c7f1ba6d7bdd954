package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	docs []Document
	err  error
}

func (m *memorySource) ListMaterials(_ context.Context, topicID string) ([]Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if topicID == "" {
		return m.docs, nil
	}
	var out []Document
	for _, d := range m.docs {
		if d.TopicID == topicID {
			out = append(out, d)
		}
	}
	return out, nil
}

func testCorpus() []Document {
	return []Document{
		{ID: "d1", TopicID: "t1", Title: "Tokens", Text: "Tokens são unidades mínimas de texto processadas pelo modelo."},
		{ID: "d2", TopicID: "t1", Title: "Contexto", Text: "A janela de contexto limita quantos tokens entram de uma vez."},
		{ID: "d3", TopicID: "t2", Title: "Retrieval", Text: "Retrieval busca trechos relevantes antes da geração."},
		{ID: "d4", TopicID: "t2", Title: "Prompt", Text: "O prompt final combina instrução, contexto recuperado e pergunta."},
	}
}

func TestSearchRanksByTokenOverlap(t *testing.T) {
	s := NewSearcher(&memorySource{docs: testCorpus()})

	docs, err := s.Search(context.Background(), "o que são tokens no modelo", "", 0)
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, "d1", docs[0].ID)
	assert.Greater(t, docs[0].Score, docs[1].Score)
	for i := 1; i < len(docs); i++ {
		assert.GreaterOrEqual(t, docs[i-1].Score, docs[i].Score)
	}
}

func TestSearchFiltersByTopic(t *testing.T) {
	s := NewSearcher(&memorySource{docs: testCorpus()})

	docs, err := s.Search(context.Background(), "como funciona retrieval", "t2", 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	for _, d := range docs {
		assert.Equal(t, "t2", d.TopicID)
	}
	assert.Equal(t, "d3", docs[0].ID)
}

func TestSearchTruncatesToK(t *testing.T) {
	s := NewSearcher(&memorySource{docs: testCorpus()})

	docs, err := s.Search(context.Background(), "tokens contexto", "t1", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestSearchAccentedTokensMatch(t *testing.T) {
	s := NewSearcher(&memorySource{docs: testCorpus()})

	docs, err := s.Search(context.Background(), "geração de respostas", "t2", 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	// "geração" tokenizes as a single word and overlaps d3's text.
	assert.Equal(t, "d3", docs[0].ID)
	assert.Greater(t, docs[0].Score, 0.0)
}

func TestSearchPropagatesSourceError(t *testing.T) {
	s := NewSearcher(&memorySource{err: errors.New("db down")})

	_, err := s.Search(context.Background(), "tokens", "t1", 3)
	assert.Error(t, err)
}

func TestTopicDocs(t *testing.T) {
	s := NewSearcher(&memorySource{docs: testCorpus()})

	docs, err := s.TopicDocs(context.Background(), "t1", 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)

	docs, err = s.TopicDocs(context.Background(), "t1", 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
