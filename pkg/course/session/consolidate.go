package session

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"ai-livecourse-be/pkg/classifier"

	"github.com/google/uuid"
)

// Flush batch limits: a topic change answers at most this many deferred
// questions; the rest are forfeited (bounded-work policy, not a bug).
const (
	DefaultEndTopicLimit = 5
	DefaultFinalLimit    = 6
)

var (
	comparisonKeyword = regexp.MustCompile(`(?i)(compar|diferença|versus|\bvs\b)`)
	causalKeyword     = regexp.MustCompile(`(?i)(porque|por que|causa|motivo)`)
)

// ConsolidatePause drains every PAUSE-tagged question into one finalized
// pause insert, answering each question individually. Runs only when the
// session is not paused; with an empty queue it returns (nil, 0).
func (s *Store) ConsolidatePause(ctx context.Context, answerer Answerer) (*Insert, int) {
	s.mu.Lock()
	if s.pause.IsPaused {
		s.mu.Unlock()
		return nil, 0
	}
	batch := s.collectLocked(classifier.RoutePause)
	topicID := s.currentTopicLocked()
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil, 0
	}
	return s.bundle(ctx, answerer, batch, ModePause, AnswerPause, topicID), len(batch)
}

// FlushEndTopic is triggered by a detected topic change: it removes the
// topic's pending placeholder, scores every END_TOPIC-tagged question, and
// bundles the top limit of them into a single finalized end_topic insert.
// Unselected questions are discarded from the queue as well.
func (s *Store) FlushEndTopic(ctx context.Context, answerer Answerer, topicID string, limit int) (*Insert, int) {
	if limit <= 0 {
		limit = DefaultEndTopicLimit
	}

	s.mu.Lock()
	s.removePendingInsertLocked(ModeEndTopic)
	batch := s.collectLocked(classifier.RouteEndTopic)
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil, 0
	}

	selected, forfeited := selectTopScored(batch, limit, 0)
	s.forfeit(forfeited)
	return s.bundle(ctx, answerer, selected, ModeEndTopic, AnswerEndTopic, topicID), len(selected)
}

// FlushFinal applies the same scoring to the end-of-session collection with a
// flat bonus, producing one final_session insert.
func (s *Store) FlushFinal(ctx context.Context, answerer Answerer, limit int) (*Insert, int) {
	if limit <= 0 {
		limit = DefaultFinalLimit
	}

	s.mu.Lock()
	s.removePendingInsertLocked(ModeFinalSession)
	batch := derefQuestions(s.finalQueue)
	topicID := s.currentTopicLocked()
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil, 0
	}

	selected, forfeited := selectTopScored(batch, limit, 0.5)
	s.forfeit(forfeited)
	return s.bundle(ctx, answerer, selected, ModeFinalSession, AnswerFinalSession, topicID), len(selected)
}

// bundle answers each question in order and concatenates the blocks into one
// finalized insert. A failed answer degrades to an inline failure message;
// it never aborts the batch.
func (s *Store) bundle(ctx context.Context, answerer Answerer, batch []Question, mode InsertMode, answerMode, topicID string) *Insert {
	var blocks []string
	var ids []string
	for _, q := range batch {
		text, refs, err := answerer.Answer(ctx, q.Text, topicID)
		if err != nil {
			text = "Falha ao gerar resposta: " + err.Error()
			refs = nil
			s.logger.Warn("Consolidation", "answer failed, degrading block", map[string]interface{}{
				"question_id": q.ID,
				"error":       err.Error(),
			})
		}
		s.PushAnswer(q.ID, text, answerMode, refs)
		ids = append(ids, q.ID)
		blocks = append(blocks, fmt.Sprintf("**Pergunta:** %s\n\n%s", q.Text, text))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	insert := &Insert{
		ID:          "ins_" + uuid.NewString(),
		Mode:        mode,
		TopicID:     topicID,
		Text:        strings.Join(blocks, "\n\n---\n\n"),
		CreatedAt:   s.now(),
		QuestionIDs: ids,
		Pending:     false,
		Version:     1,
	}
	s.inserts = append(s.inserts, insert)
	s.persistLocked()
	out := *insert
	return &out
}

// forfeit silently drops unselected questions from every collection.
func (s *Store) forfeit(dropped []Question) {
	if len(dropped) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range dropped {
		s.removeQuestionLocked(q.ID)
	}
	s.logger.Info("Consolidation", "forfeited unselected questions", map[string]interface{}{
		"session_id": s.sessionID,
		"count":      len(dropped),
	})
	s.persistLocked()
}

func (s *Store) collectLocked(route classifier.Route) []Question {
	var out []Question
	for _, q := range s.broadcast {
		if q.Route == route {
			out = append(out, *q)
		}
	}
	return out
}

func (s *Store) removePendingInsertLocked(mode InsertMode) {
	for i, ins := range s.inserts {
		if ins.Mode == mode && ins.Pending {
			s.inserts = append(s.inserts[:i], s.inserts[i+1:]...)
			return
		}
	}
}

// scoreQuestion favors substantial, analytical questions:
// length band (+1 short, +2 medium, -1 very long), +1.5 for multiple
// question marks, +1 for comparison keywords, +0.5 for causal keywords.
func scoreQuestion(text string, bonus float64) float64 {
	score := bonus
	switch length := utf8.RuneCountInString(text); {
	case length < 140:
		score++
	case length <= 400:
		score += 2
	default:
		score--
	}
	if strings.Count(text, "?") > 1 {
		score += 1.5
	}
	if comparisonKeyword.MatchString(text) {
		score++
	}
	if causalKeyword.MatchString(text) {
		score += 0.5
	}
	return score
}

// selectTopScored sorts descending by score (stable: ties break by insertion
// order) and splits the batch into the top limit and the rest.
func selectTopScored(batch []Question, limit int, bonus float64) (selected, forfeited []Question) {
	scored := make([]Question, len(batch))
	copy(scored, batch)
	sort.SliceStable(scored, func(i, j int) bool {
		return scoreQuestion(scored[i].Text, bonus) > scoreQuestion(scored[j].Text, bonus)
	})
	if len(scored) <= limit {
		return scored, nil
	}
	return scored[:limit], scored[limit:]
}
