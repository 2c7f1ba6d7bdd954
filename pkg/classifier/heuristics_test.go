package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "obrigado", NormalizeKey("  Obrigado  "))
	assert.Equal(t, "como usar rag", NormalizeKey("Como   *usar*  RAG"))
	assert.Equal(t, "ok", NormalizeKey("`OK`"))
}

func TestHeuristicIrrelevance_Decisive(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"punct only", "???"},
		{"ack phrase", "vlw"},
		{"thanks", "obrigado"},
		{"single char", "k"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := HeuristicIrrelevance(tc.text, nil)
			assert.True(t, res.Decided, "expected decisive for %q (score %d)", tc.text, res.Score)
			assert.True(t, res.Irrelevant)
			assert.LessOrEqual(t, res.Score, irrelevanceCutoff)
		})
	}
}

func TestHeuristicIrrelevance_RealQuestionsPass(t *testing.T) {
	cases := []string{
		"Como funciona a janela de contexto?",
		"Qual a diferença entre embedding e token?",
		"Pode dar um exemplo de uso em produção?",
	}
	for _, text := range cases {
		res := HeuristicIrrelevance(text, nil)
		assert.False(t, res.Decided, "question %q should not be settled by the heuristic", text)
		assert.False(t, res.Uncertain, "long interrogative texts skip the fallback")
	}
}

func TestHeuristicIrrelevance_DuplicateSuppression(t *testing.T) {
	text := "bora almoçar pessoal"
	first := HeuristicIrrelevance(text, nil)
	assert.False(t, first.Decided)

	// Once the same normalized text was ignored, the duplicate penalty
	// pushes it past the cutoff.
	second := HeuristicIrrelevance(text, []string{NormalizeKey(text)})
	assert.True(t, second.Decided)
	assert.True(t, second.Irrelevant)
}

func TestHeuristicIrrelevance_UncertaintyBand(t *testing.T) {
	// Short, not interrogative, not noise: lands in the band that enables
	// the LLM fallback.
	res := HeuristicIrrelevance("e os testes", nil)
	assert.False(t, res.Decided)
	assert.True(t, res.Uncertain)

	// Short but carrying an interrogative keyword skips the fallback.
	res = HeuristicIrrelevance("como assim?", nil)
	assert.False(t, res.Uncertain)

	// Above twelve characters leaves the band.
	res = HeuristicIrrelevance("texto razoavelmente longo sem pergunta", nil)
	assert.False(t, res.Uncertain)
}
