package stream

import (
	"context"
	"testing"
	"time"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/classifier"
	"ai-livecourse-be/pkg/course/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Emit(sessionID string, event Event) {
	s.events = append(s.events, event)
}

func (s *recordingSink) byType(kind string) []Event {
	var out []Event
	for _, ev := range s.events {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fakeAnswerer struct{}

func (fakeAnswerer) Answer(ctx context.Context, question, topicID string) (string, []string, error) {
	return "Resposta: " + question, nil, nil
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateLesson(ctx context.Context, topicID string, sub session.Subtask) (string, []string, error) {
	return "Conteúdo de " + sub.Title, nil, nil
}

func newTestReconciler(plan []session.Topic) (*Reconciler, *session.Store, *recordingSink) {
	store := session.NewStore("sess-stream", plan, nil, logger.NewNopLogger())
	sink := &recordingSink{}
	rec := NewReconciler(store, fakeAnswerer{}, fakeGenerator{}, sink, 10*time.Millisecond, FlushLimits{}, logger.NewNopLogger())
	return rec, store, sink
}

func twoTopicPlan() []session.Topic {
	return []session.Topic{
		{ID: "t1", Title: "Tópico 1", Subtasks: []session.Subtask{{ID: "t1s1", Title: "Sub 1.1"}}},
		{ID: "t2", Title: "Tópico 2", Subtasks: []session.Subtask{{ID: "t2s1", Title: "Sub 2.1"}}},
	}
}

func TestTickHeartbeatAndClassifiedDrain(t *testing.T) {
	rec, store, sink := newTestReconciler(twoTopicPlan())

	q := store.Ingest("Pergunta rápida?", "audience")
	store.Classify(q.ID, classifier.RouteChatNow, session.ClassifyOptions{})

	rec.tick(context.Background())
	assert.Len(t, sink.byType(EventHeartbeat), 1)
	require.Len(t, sink.byType(EventClassified), 1)

	// Level-triggered: an unchanged store re-emits nothing but the
	// heartbeat.
	rec.tick(context.Background())
	assert.Len(t, sink.byType(EventHeartbeat), 2)
	assert.Len(t, sink.byType(EventClassified), 1)
}

func TestTickEmitsPendingVersionsOnce(t *testing.T) {
	// Several subtasks keep the cursor inside t1 across these ticks, so no
	// topic-change flush interferes with the pending placeholder.
	rec, store, sink := newTestReconciler([]session.Topic{
		{ID: "t1", Title: "Tópico 1", Subtasks: []session.Subtask{
			{ID: "t1s1", Title: "Sub 1.1"},
			{ID: "t1s2", Title: "Sub 1.2"},
			{ID: "t1s3", Title: "Sub 1.3"},
			{ID: "t1s4", Title: "Sub 1.4"},
		}},
	})

	q := store.Ingest("Pergunta para o fim do tópico, das mais longas?", "audience")
	store.Classify(q.ID, classifier.RouteEndTopic, session.ClassifyOptions{})

	rec.tick(context.Background())
	inserts := sink.byType(EventInsert)
	require.Len(t, inserts, 1)
	assert.True(t, inserts[0].Data.(InsertPayload).Pending)

	// Same version: silent. Bumped version: one more emission.
	rec.tick(context.Background())
	assert.Len(t, sink.byType(EventInsert), 1)

	q2 := store.Ingest("Outra pergunta para o fim do tópico?", "audience")
	store.Classify(q2.ID, classifier.RouteEndTopic, session.ClassifyOptions{})
	rec.tick(context.Background())
	inserts = sink.byType(EventInsert)
	require.Len(t, inserts, 2)
	assert.Equal(t, int64(2), inserts[1].Data.(InsertPayload).Version)
}

func TestTickDrivesSessionToCompletion(t *testing.T) {
	rec, store, sink := newTestReconciler(twoTopicPlan())

	q := store.Ingest("Pergunta longa para depois do tópico atual?", "audience")
	store.Classify(q.ID, classifier.RouteEndTopic, session.ClassifyOptions{})

	finished := false
	for i := 0; i < 20 && !finished; i++ {
		finished = rec.tick(context.Background())
	}
	require.True(t, finished, "reconciler should terminate once the plan drains")
	assert.True(t, store.Done())

	// Both lessons streamed, in order.
	lessons := sink.byType(EventLesson)
	require.Len(t, lessons, 2)
	assert.Equal(t, 0, lessons[0].Data.(LessonPayload).Index)
	assert.Equal(t, 1, lessons[1].Data.(LessonPayload).Index)

	// The deferred question was flushed into a finalized end_topic insert,
	// emitted exactly once and pruned from the store.
	var finalized []Event
	for _, ev := range sink.byType(EventInsert) {
		if p := ev.Data.(InsertPayload); !p.Pending && p.Mode == session.ModeEndTopic {
			finalized = append(finalized, ev)
		}
	}
	require.Len(t, finalized, 1)
	assert.Empty(t, store.Inserts())

	done := sink.byType(EventDone)
	require.Len(t, done, 1)
	assert.Equal(t, 2, done[0].Data.(DonePayload).Total)
}

func TestTickExpiresPause(t *testing.T) {
	rec, store, sink := newTestReconciler(twoTopicPlan())
	store.RequestPause(-time.Millisecond, "expirada")

	rec.tick(context.Background())
	logs := sink.byType(EventLog)
	require.Len(t, logs, 1)
	assert.Equal(t, "pause_expired", logs[0].Data.(LogPayload).Msg)
	assert.False(t, store.PauseState().IsPaused)
}

func TestTickHonorsFlushLimits(t *testing.T) {
	store := session.NewStore("sess-limits", twoTopicPlan(), nil, logger.NewNopLogger())
	sink := &recordingSink{}
	rec := NewReconciler(store, fakeAnswerer{}, fakeGenerator{}, sink, 10*time.Millisecond, FlushLimits{EndTopic: 1, Final: 1}, logger.NewNopLogger())

	texts := []string{
		"Como os tokens influenciam o custo das chamadas ao modelo?",
		"Qual a relação entre janela de contexto e qualidade?",
		"Por que modelos maiores lidam melhor com contexto longo?",
	}
	for _, text := range texts {
		q := store.Ingest(text, "audience")
		store.Classify(q.ID, classifier.RouteEndTopic, session.ClassifyOptions{})
	}

	// First tick generates t1's only subtask, moving the cursor to t2;
	// the second tick sees the topic change and flushes with the limit.
	rec.tick(context.Background())
	rec.tick(context.Background())

	var finalized []InsertPayload
	for _, ev := range sink.byType(EventInsert) {
		p := ev.Data.(InsertPayload)
		if !p.Pending && p.Mode == session.ModeEndTopic {
			finalized = append(finalized, p)
		}
	}
	require.Len(t, finalized, 1)
	assert.Len(t, finalized[0].QuestionIDs, 1)

	// Unselected questions are forfeited, not re-queued.
	view := store.View(10)
	assert.Empty(t, view.Broadcast)
}

type panickingAnswerer struct{}

func (panickingAnswerer) Answer(ctx context.Context, question, topicID string) (string, []string, error) {
	panic("answerer backend gone")
}

func TestTickSurvivesPanickingStep(t *testing.T) {
	store := session.NewStore("sess-panic", twoTopicPlan(), nil, logger.NewNopLogger())
	sink := &recordingSink{}
	rec := NewReconciler(store, panickingAnswerer{}, fakeGenerator{}, sink, 10*time.Millisecond, FlushLimits{}, logger.NewNopLogger())

	q := store.Ingest("Pode detalhar como a janela de contexto limita o modelo em produção?", "audience")
	store.Classify(q.ID, classifier.RoutePause, session.ClassifyOptions{})

	require.NotPanics(t, func() { rec.tick(context.Background()) })

	errs := sink.byType(EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Data.(ErrorPayload).Message, "consolidate_pause")

	// The loop keeps ticking; heartbeats are unaffected.
	require.NotPanics(t, func() { rec.tick(context.Background()) })
	assert.Len(t, sink.byType(EventHeartbeat), 2)
}

func TestRunStopsOnClose(t *testing.T) {
	rec, _, _ := newTestReconciler(twoTopicPlan())
	rec.Close()

	donech := make(chan struct{})
	go func() {
		rec.Run(context.Background())
		close(donech)
	}()

	select {
	case <-donech:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after Close")
	}
}
