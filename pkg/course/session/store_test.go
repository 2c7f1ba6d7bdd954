package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/classifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnswerer struct {
	calls []string
	fail  map[string]error
}

func (a *stubAnswerer) Answer(ctx context.Context, question, topicID string) (string, []string, error) {
	a.calls = append(a.calls, question)
	if err, ok := a.fail[question]; ok {
		return "", nil, err
	}
	return "Resposta para: " + question, []string{"doc-1"}, nil
}

type stubGenerator struct {
	calls int
	err   error
}

func (g *stubGenerator) GenerateLesson(ctx context.Context, topicID string, sub Subtask) (string, []string, error) {
	g.calls++
	if g.err != nil {
		return "", nil, g.err
	}
	return fmt.Sprintf("Conteúdo de %s", sub.Title), []string{"ref-1"}, nil
}

type recordingSink struct {
	snaps []Snapshot
	err   error
}

func (s *recordingSink) Persist(snap Snapshot) error {
	s.snaps = append(s.snaps, snap)
	return s.err
}

func testPlan() []Topic {
	return []Topic{
		{ID: "t1", Title: "Tópico 1", Subtasks: []Subtask{
			{ID: "t1s1", Title: "Sub 1.1"},
			{ID: "t1s2", Title: "Sub 1.2"},
		}},
		{ID: "t2", Title: "Tópico 2", Subtasks: []Subtask{
			{ID: "t2s1", Title: "Sub 2.1"},
		}},
	}
}

func newTestStore() *Store {
	return NewStore("sess-test", testPlan(), nil, logger.NewNopLogger())
}

func classifyText(s *Store, text string, route classifier.Route) Question {
	q := s.Ingest(text, "audience")
	s.Classify(q.ID, route, ClassifyOptions{})
	return q
}

func TestClassifyRoutesToCollections(t *testing.T) {
	s := newTestStore()

	pause := classifyText(s, "Pergunta média?", classifier.RoutePause)
	endTopic := classifyText(s, "Pergunta longa?", classifier.RouteEndTopic)
	final := classifyText(s, "Para o fim da sessão?", classifier.RouteFinal)
	note := classifyText(s, "anotar: revisar slides", classifier.RouteNote)

	view := s.View(0)
	require.Len(t, view.Broadcast, 2)
	assert.Equal(t, pause.ID, view.Broadcast[0].ID)
	assert.Equal(t, endTopic.ID, view.Broadcast[1].ID)
	require.Len(t, view.FinalQueue, 1)
	assert.Equal(t, final.ID, view.FinalQueue[0].ID)
	require.Len(t, view.Notes, 1)
	assert.Equal(t, note.ID, view.Notes[0].ID)

	m := s.MetricsView()
	assert.Equal(t, 1, m.Routes[classifier.RoutePause])
	assert.Equal(t, 1, m.Routes[classifier.RouteEndTopic])
}

func TestIgnoreRemembersNormalizedText(t *testing.T) {
	s := newTestStore()
	classifyText(s, "Obrigado!", classifier.RouteIgnore)

	ignored := s.RecentIgnored()
	require.Len(t, ignored, 1)
	assert.Equal(t, classifier.NormalizeKey("Obrigado!"), ignored[0])

	// Ignored questions leave the working set entirely.
	assert.Empty(t, s.View(0).Questions)
}

func TestEndTopicPlaceholderVersionMonotonic(t *testing.T) {
	s := newTestStore()

	classifyText(s, "Primeira pergunta longa?", classifier.RouteEndTopic)
	inserts := s.Inserts()
	require.Len(t, inserts, 1)
	assert.True(t, inserts[0].Pending)
	assert.Equal(t, int64(1), inserts[0].Version)
	firstID := inserts[0].ID

	classifyText(s, "Segunda pergunta longa?", classifier.RouteEndTopic)
	inserts = s.Inserts()
	require.Len(t, inserts, 1, "one pending placeholder per topic")
	assert.Equal(t, firstID, inserts[0].ID)
	assert.Equal(t, int64(2), inserts[0].Version)
	assert.Len(t, inserts[0].QuestionIDs, 2)
	assert.Contains(t, inserts[0].Text, "1.")
	assert.Contains(t, inserts[0].Text, "2.")
}

func TestOverrideRouteMovesQuestion(t *testing.T) {
	s := newTestStore()
	q := classifyText(s, "Pergunta qualquer?", classifier.RoutePause)

	s.OverrideRoute(q.ID, classifier.RouteFinal)

	view := s.View(0)
	assert.Empty(t, view.Broadcast)
	require.Len(t, view.FinalQueue, 1)
	assert.Equal(t, q.ID, view.FinalQueue[0].ID)

	// Two audit records: the original classification and the override.
	events, _ := s.ClassifiedSince(0)
	require.Len(t, events, 2)
	assert.Equal(t, classifier.RouteFinal, events[1].Route)
	assert.Equal(t, "manual_override", events[1].Reason)
}

func TestOverrideUnknownQuestionIsNoop(t *testing.T) {
	s := newTestStore()
	s.OverrideRoute("q_missing", classifier.RouteFinal)
	events, _ := s.ClassifiedSince(0)
	assert.Empty(t, events)
}

func TestPushAnswerRemovesQuestion(t *testing.T) {
	s := newTestStore()
	q := classifyText(s, "Pergunta rápida?", classifier.RouteChatNow)

	ans := s.PushAnswer(q.ID, "resposta", AnswerChatNow, []string{"doc-1"})
	assert.Equal(t, q.ID, ans.QuestionID)

	view := s.View(0)
	assert.Empty(t, view.Questions)
	require.Len(t, view.Answers, 1)
	assert.Equal(t, AnswerChatNow, view.Answers[0].Mode)

	// Answering a question that no longer exists still records the Answer.
	s.PushAnswer("q_gone", "tarde demais", AnswerPause, nil)
	assert.Len(t, s.View(0).Answers, 2)
}

func TestPauseWindowForwardOnly(t *testing.T) {
	s := newTestStore()

	first := s.RequestPause(5000*time.Millisecond, "dúvida")
	require.True(t, first.IsPaused)

	// A shorter concurrent request must not pull the deadline back.
	second := s.RequestPause(2000*time.Millisecond, "outra dúvida")
	assert.Equal(t, first.PauseUntil, second.PauseUntil)

	longer := s.RequestPause(60000*time.Millisecond, "")
	assert.True(t, longer.PauseUntil.After(first.PauseUntil))

	s.ForceResume()
	assert.False(t, s.PauseState().IsPaused)
}

func TestExpirePause(t *testing.T) {
	s := newTestStore()
	s.RequestPause(-1*time.Millisecond, "já expirada")

	assert.True(t, s.ExpirePause())
	assert.False(t, s.PauseState().IsPaused)
	// Second call: nothing left to clear.
	assert.False(t, s.ExpirePause())
}

func TestStepGeneratesLessonsAndAdvances(t *testing.T) {
	s := newTestStore()
	gen := &stubGenerator{}

	for i := 0; i < 3; i++ {
		advanced, err := s.Step(context.Background(), gen)
		require.NoError(t, err)
		assert.True(t, advanced)
	}
	assert.Equal(t, 3, gen.calls)
	assert.True(t, s.Done())

	lessons, _ := s.LessonsSince(0)
	require.Len(t, lessons, 3)
	assert.Equal(t, "t1s1", lessons[0].SubtaskID)
	assert.Equal(t, "t2s1", lessons[2].SubtaskID)

	// Finished plan: further steps are no-ops.
	advanced, err := s.Step(context.Background(), gen)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, 3, gen.calls)
}

func TestStepUntilNewLesson(t *testing.T) {
	s := newTestStore()
	gen := &stubGenerator{}

	produced, err := s.StepUntilNewLesson(context.Background(), gen, 5)
	require.NoError(t, err)
	assert.True(t, produced)
	assert.Equal(t, 1, gen.calls)

	// Drain the remaining two subtasks, then the plan is exhausted.
	for i := 0; i < 2; i++ {
		produced, err = s.StepUntilNewLesson(context.Background(), gen, 5)
		require.NoError(t, err)
		assert.True(t, produced)
	}
	produced, err = s.StepUntilNewLesson(context.Background(), gen, 5)
	require.NoError(t, err)
	assert.False(t, produced)
	assert.True(t, s.Done())

	lessons, _ := s.LessonsSince(0)
	assert.Len(t, lessons, 3)
}

func TestStepSuppressedWhilePaused(t *testing.T) {
	s := newTestStore()
	gen := &stubGenerator{}
	s.RequestPause(60000*time.Millisecond, "")

	advanced, err := s.Step(context.Background(), gen)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Zero(t, gen.calls)
}

func TestStepGeneratorFailure(t *testing.T) {
	s := newTestStore()
	gen := &stubGenerator{err: errors.New("model offline")}

	advanced, err := s.Step(context.Background(), gen)
	assert.False(t, advanced)
	require.Error(t, err)

	// Cursor did not move; the next successful step retries the same subtask.
	gen.err = nil
	_, err = s.Step(context.Background(), gen)
	require.NoError(t, err)
	lessons, _ := s.LessonsSince(0)
	require.Len(t, lessons, 1)
	assert.Equal(t, "t1s1", lessons[0].SubtaskID)
}

func TestRefine(t *testing.T) {
	s := newTestStore()
	_, err := s.Step(context.Background(), &stubGenerator{})
	require.NoError(t, err)

	lessons, _ := s.LessonsSince(0)
	require.Len(t, lessons, 1)

	refined, err := s.Refine(lessons[0].ID, "mais exemplos práticos")
	require.NoError(t, err)
	assert.True(t, refined.Refined)
	assert.Contains(t, refined.Content, "[Refinamento]: mais exemplos práticos")

	_, err = s.Refine("les_missing", "x")
	assert.Error(t, err)
}

func TestClassifiedSinceBoundedLog(t *testing.T) {
	s := newTestStore()
	for i := 0; i < maxClassifiedLog+10; i++ {
		classifyText(s, fmt.Sprintf("Pergunta número %d?", i), classifier.RouteChatNow)
	}

	events, cursor := s.ClassifiedSince(0)
	assert.Len(t, events, maxClassifiedLog)
	assert.Equal(t, maxClassifiedLog+10, cursor)

	// Cursor at the tip: nothing new.
	events, next := s.ClassifiedSince(cursor)
	assert.Empty(t, events)
	assert.Equal(t, cursor, next)
}

func TestPersistSinkFailureIsRecoverable(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	s := NewStore("sess-test", testPlan(), sink, logger.NewNopLogger())

	q := s.Ingest("Pergunta?", "audience")
	s.Classify(q.ID, classifier.RouteChatNow, ClassifyOptions{})

	// State is still live despite every persist failing.
	assert.NotEmpty(t, sink.snaps)
	events, _ := s.ClassifiedSince(0)
	assert.Len(t, events, 1)
}
