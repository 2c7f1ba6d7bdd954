package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-livecourse-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	classifyCalls    int
	irrelevanceCalls int

	classResult *ClassResult
	classErr    error

	irrelevance    *IrrelevanceResult
	irrelevanceErr error
}

func (s *stubClassifier) Classify(ctx context.Context, text string, topics TopicContext) (*ClassResult, error) {
	s.classifyCalls++
	return s.classResult, s.classErr
}

func (s *stubClassifier) ClassifyIrrelevance(ctx context.Context, text string) (*IrrelevanceResult, error) {
	s.irrelevanceCalls++
	return s.irrelevance, s.irrelevanceErr
}

func newTestPipeline(stub *stubClassifier) *Pipeline {
	return NewPipeline(stub, NewVerdictCache(time.Minute), logger.NewNopLogger())
}

func TestPipeline_HeuristicShortCircuit(t *testing.T) {
	stub := &stubClassifier{}
	p := newTestPipeline(stub)

	d, err := p.Run(context.Background(), "obrigado", TopicContext{}, nil)
	require.NoError(t, err)
	assert.True(t, d.Irrelevant)
	assert.Equal(t, SourceHeuristic, d.Source)
	assert.Zero(t, stub.classifyCalls, "decisive heuristic must not reach the classifier")
	assert.Zero(t, stub.irrelevanceCalls)
}

func TestPipeline_CacheReproducesVerdict(t *testing.T) {
	stub := &stubClassifier{}
	p := newTestPipeline(stub)

	_, err := p.Run(context.Background(), "valeu", TopicContext{}, nil)
	require.NoError(t, err)

	// Same normalized text within the TTL: settled by the cache alone.
	d, err := p.Run(context.Background(), "  VALEU  ", TopicContext{}, nil)
	require.NoError(t, err)
	assert.True(t, d.Irrelevant)
	assert.Equal(t, SourceCache, d.Source)
	assert.Zero(t, stub.classifyCalls)
}

func TestPipeline_FallbackConfidenceFloor(t *testing.T) {
	// "e os testes" sits in the uncertainty band, enabling the fallback.
	t.Run("confident verdict settles", func(t *testing.T) {
		stub := &stubClassifier{irrelevance: &IrrelevanceResult{Irrelevant: true, Confidence: 0.9, Rationale: "conversa paralela"}}
		p := newTestPipeline(stub)

		d, err := p.Run(context.Background(), "e os testes", TopicContext{}, nil)
		require.NoError(t, err)
		assert.True(t, d.Irrelevant)
		assert.Equal(t, SourceClassifier, d.Source)
		assert.Zero(t, stub.classifyCalls)
	})

	t.Run("low confidence falls through to primary", func(t *testing.T) {
		stub := &stubClassifier{
			irrelevance: &IrrelevanceResult{Irrelevant: true, Confidence: 0.4},
			classResult: &ClassResult{TopicRelevance: RelevanceCurrent, Route: RouteChatNow},
		}
		p := newTestPipeline(stub)

		d, err := p.Run(context.Background(), "e os testes", TopicContext{}, nil)
		require.NoError(t, err)
		assert.False(t, d.Irrelevant)
		assert.Equal(t, 1, stub.classifyCalls)
	})

	t.Run("fallback failure is recoverable", func(t *testing.T) {
		stub := &stubClassifier{
			irrelevanceErr: errors.New("model offline"),
			classResult:    &ClassResult{TopicRelevance: RelevanceCurrent, Route: RouteChatNow},
		}
		p := newTestPipeline(stub)

		d, err := p.Run(context.Background(), "e os testes", TopicContext{}, nil)
		require.NoError(t, err)
		assert.False(t, d.Irrelevant)
		assert.Equal(t, 1, stub.classifyCalls)
	})
}

func TestPipeline_PrimaryFailureIsHard(t *testing.T) {
	stub := &stubClassifier{classErr: errors.New("malformed output")}
	p := newTestPipeline(stub)

	_, err := p.Run(context.Background(), "Como funciona a tokenização em detalhe?", TopicContext{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary classification")
}

func TestVerdictCache_TTL(t *testing.T) {
	c := NewVerdictCache(10 * time.Millisecond)
	c.Set("valeu demais", true, "teste")

	v, found := c.Get("VALEU   demais")
	require.True(t, found)
	assert.True(t, v.Irrelevant)

	time.Sleep(25 * time.Millisecond)
	_, found = c.Get("valeu demais")
	assert.False(t, found)
}
