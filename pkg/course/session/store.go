package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/classifier"

	"github.com/google/uuid"
)

const (
	maxClassifiedLog = 256
	maxRecentIgnored = 50
)

var citationPattern = regexp.MustCompile(`\[\[ref:[^\]]+\]\]`)

// Store is the single mutable source of truth for one live session: queues,
// pause window, inserts, metrics and the topic/subtask cursor. One store per
// session, owned by the orchestrating service. All mutations are serialized
// behind the mutex and hand a snapshot to the persistence sink; a sink
// failure is logged and the in-memory state stays authoritative.
type Store struct {
	mu        sync.Mutex
	sessionID string
	logger    logger.ILogger
	sink      PersistSink
	now       func() time.Time

	plan     []Topic
	topicIdx int
	subIdx   int
	done     bool

	lessons    []Lesson
	questions  []*Question
	broadcast  []*Question
	finalQueue []*Question
	notes      []*Question
	inserts    []*Insert
	answers    []Answer

	classified     []ClassifiedEvent
	classifiedBase int

	pause             PauseWindow
	metrics           Metrics
	recentIgnored     []string
	currentQuestionID string
}

// ClassifyOptions carries the classification outcome applied to a question.
type ClassifyOptions struct {
	NeedsRAG bool
	Reason   string
}

func NewStore(sessionID string, plan []Topic, sink PersistSink, log logger.ILogger) *Store {
	return &Store{
		sessionID: sessionID,
		plan:      plan,
		sink:      sink,
		logger:    log,
		now:       time.Now,
		metrics:   newMetrics(),
	}
}

func (s *Store) SessionID() string { return s.sessionID }

// Ingest records a new unclassified question and returns a copy.
func (s *Store) Ingest(text, origin string) Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := &Question{
		ID:        "q_" + uuid.NewString(),
		Text:      strings.TrimSpace(text),
		CreatedAt: s.now(),
		Origin:    origin,
	}
	s.questions = append(s.questions, q)
	s.persistLocked()
	return *q
}

// Classify applies a routing decision to a question. Unknown ids are a
// logged no-op, not an error. Every call appends one audit record and bumps
// the route counter.
func (s *Store) Classify(questionID string, route classifier.Route, opts ClassifyOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifyLocked(questionID, route, opts)
}

// OverrideRoute forces a new route onto an already-classified question: it is
// pulled out of whichever collection holds it, then re-classified.
func (s *Store) OverrideRoute(questionID string, route classifier.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.findQuestionLocked(questionID)
	if q == nil {
		s.logger.Warn("SessionStore", "override for unknown question", map[string]interface{}{"question_id": questionID})
		return
	}
	s.broadcast = removeByID(s.broadcast, questionID)
	s.finalQueue = removeByID(s.finalQueue, questionID)
	s.notes = removeByID(s.notes, questionID)
	q.Classified = false
	s.classifyLocked(questionID, route, ClassifyOptions{NeedsRAG: q.NeedsRAG, Reason: "manual_override"})
}

func (s *Store) classifyLocked(questionID string, route classifier.Route, opts ClassifyOptions) {
	q := s.findQuestionLocked(questionID)
	if q == nil {
		s.logger.Warn("SessionStore", "classify for unknown question", map[string]interface{}{"question_id": questionID, "route": string(route)})
		return
	}

	q.Route = route
	q.NeedsRAG = opts.NeedsRAG && route != classifier.RouteIgnore
	q.Reason = opts.Reason
	q.Classified = true

	switch route {
	case classifier.RoutePause:
		s.broadcast = append(s.broadcast, q)
	case classifier.RouteEndTopic:
		s.broadcast = append(s.broadcast, q)
		s.upsertEndTopicInsertLocked()
	case classifier.RouteFinal:
		s.finalQueue = append(s.finalQueue, q)
	case classifier.RouteNote:
		s.notes = append(s.notes, q)
	case classifier.RouteIgnore:
		s.rememberIgnoredLocked(q.Text)
		s.questions = removeByID(s.questions, questionID)
	case classifier.RouteChatNow:
		// No queue insertion: the caller answers synchronously next.
	}

	s.classified = append(s.classified, ClassifiedEvent{
		QuestionID: questionID,
		Route:      route,
		Timestamp:  s.now(),
		Reason:     opts.Reason,
	})
	if len(s.classified) > maxClassifiedLog {
		drop := len(s.classified) - maxClassifiedLog
		s.classified = append([]ClassifiedEvent(nil), s.classified[drop:]...)
		s.classifiedBase += drop
	}
	s.metrics.countRoute(route)
	s.persistLocked()
}

// PushAnswer records an Answer and removes the question from whichever
// collection currently holds it. Calling it for a question that no longer
// exists is a defensive no-op aside from the Answer record itself.
func (s *Store) PushAnswer(questionID, text, mode string, refs []string) Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushAnswerLocked(questionID, text, mode, refs)
}

func (s *Store) pushAnswerLocked(questionID, text, mode string, refs []string) Answer {
	ans := Answer{
		ID:         "ans_" + questionID,
		QuestionID: questionID,
		Text:       text,
		Mode:       mode,
		CreatedAt:  s.now(),
		Refs:       refs,
	}
	s.answers = append(s.answers, ans)
	s.removeQuestionLocked(questionID)
	if s.currentQuestionID == questionID {
		s.currentQuestionID = ""
	}
	s.persistLocked()
	return ans
}

// CountIrrelevance bumps the per-source irrelevance counter.
func (s *Store) CountIrrelevance(source classifier.IrrelevanceSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.countIrrelevance(source)
}

// RecentIgnored returns the normalized keys of recently ignored texts for
// duplicate suppression in the heuristic stage.
func (s *Store) RecentIgnored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.recentIgnored))
	copy(out, s.recentIgnored)
	return out
}

// Step advances content generation by one subtask. While paused this is a
// no-op returning the current state unchanged; queued answer generation is
// unaffected, only topic/subtask advancement stops.
func (s *Store) Step(ctx context.Context, gen ContentGenerator) (bool, error) {
	s.mu.Lock()
	if s.done || s.pause.IsPaused || s.topicIdx >= len(s.plan) {
		s.mu.Unlock()
		return false, nil
	}
	topic := s.plan[s.topicIdx]
	for len(topic.Subtasks) == 0 {
		s.advanceCursorLocked()
		if s.done {
			s.mu.Unlock()
			return false, nil
		}
		topic = s.plan[s.topicIdx]
	}
	sub := topic.Subtasks[s.subIdx]
	if s.hasLessonLocked(sub.ID) {
		s.advanceCursorLocked()
		s.persistLocked()
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	// The generator call runs without the lock; results are applied on
	// re-entry so other mutations stay serialized around it.
	content, refs, err := gen.GenerateLesson(ctx, topic.ID, sub)
	if err != nil {
		return false, fmt.Errorf("generate lesson %s/%s: %w", topic.ID, sub.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasLessonLocked(sub.ID) {
		return false, nil
	}
	lesson := Lesson{
		ID:        "les_" + uuid.NewString(),
		TopicID:   topic.ID,
		SubtaskID: sub.ID,
		Content:   content,
		Citations: uniqueCitations(content),
		CreatedAt: s.now(),
	}
	if len(lesson.Citations) == 0 && len(refs) > 0 {
		lesson.Citations = refs
	}
	s.lessons = append(s.lessons, lesson)
	s.advanceCursorLocked()
	s.persistLocked()
	return true, nil
}

// StepUntilNewLesson steps repeatedly until a step emits a fresh lesson,
// the session finishes, or maxSteps is exhausted. Skipped subtasks (already
// generated) do not count as progress.
func (s *Store) StepUntilNewLesson(ctx context.Context, gen ContentGenerator, maxSteps int) (bool, error) {
	for i := 0; i < maxSteps; i++ {
		produced, err := s.Step(ctx, gen)
		if err != nil {
			return false, err
		}
		if produced {
			return true, nil
		}
		if s.Done() || s.PauseState().IsPaused {
			return false, nil
		}
	}
	return false, nil
}

// Refine appends a refinement block to a lesson and re-normalizes citations.
func (s *Store) Refine(lessonID, prompt string) (*Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lessons {
		if s.lessons[i].ID != lessonID {
			continue
		}
		l := &s.lessons[i]
		l.Content = l.Content + "\n\n[Refinamento]: " + strings.TrimSpace(prompt)
		l.Citations = uniqueCitations(l.Content)
		l.Refined = true
		l.RefinedAt = s.now()
		s.persistLocked()
		out := *l
		return &out, nil
	}
	return nil, fmt.Errorf("lesson %s not found", lessonID)
}

func (s *Store) advanceCursorLocked() {
	if s.topicIdx >= len(s.plan) {
		s.done = true
		return
	}
	s.subIdx++
	if s.subIdx >= len(s.plan[s.topicIdx].Subtasks) {
		s.topicIdx++
		s.subIdx = 0
	}
	if s.topicIdx >= len(s.plan) {
		s.done = true
	}
}

func (s *Store) hasLessonLocked(subtaskID string) bool {
	for _, l := range s.lessons {
		if l.SubtaskID == subtaskID {
			return true
		}
	}
	return false
}

// CurrentTopicID returns the cursor's topic, or empty once the plan is done.
func (s *Store) CurrentTopicID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTopicLocked()
}

func (s *Store) currentTopicLocked() string {
	if s.topicIdx >= len(s.plan) {
		return ""
	}
	return s.plan[s.topicIdx].ID
}

// FutureTopicIDs lists the topics after the cursor, for classifier context.
func (s *Store) FutureTopicIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for i := s.topicIdx + 1; i < len(s.plan); i++ {
		out = append(out, s.plan[i].ID)
	}
	return out
}

func (s *Store) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// MarkDone flags the session finished regardless of remaining plan.
func (s *Store) MarkDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.persistLocked()
}

// ClassifiedSince returns audit events recorded after the cursor plus the new
// cursor value. A cursor behind the bounded log's base resumes at the base.
func (s *Store) ClassifiedSince(cursor int) ([]ClassifiedEvent, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor < s.classifiedBase {
		cursor = s.classifiedBase
	}
	idx := cursor - s.classifiedBase
	if idx >= len(s.classified) {
		return nil, cursor
	}
	out := make([]ClassifiedEvent, len(s.classified)-idx)
	copy(out, s.classified[idx:])
	return out, s.classifiedBase + len(s.classified)
}

// LessonsSince returns lessons appended after the cursor plus the new cursor.
func (s *Store) LessonsSince(cursor int) ([]Lesson, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor >= len(s.lessons) {
		return nil, cursor
	}
	out := make([]Lesson, len(s.lessons)-cursor)
	copy(out, s.lessons[cursor:])
	return out, len(s.lessons)
}

// Inserts returns a copy of the pending set: pending placeholders plus
// finalized inserts not yet emitted.
func (s *Store) Inserts() []Insert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Insert, 0, len(s.inserts))
	for _, ins := range s.inserts {
		out = append(out, *ins)
	}
	return out
}

// RemoveInsert prunes an insert from the pending set once it was emitted.
func (s *Store) RemoveInsert(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ins := range s.inserts {
		if ins.ID == id {
			s.inserts = append(s.inserts[:i], s.inserts[i+1:]...)
			s.persistLocked()
			return
		}
	}
}

// StateView is the read model served by the state endpoint.
type StateView struct {
	Questions    []Question  `json:"questions"`
	Broadcast    []Question  `json:"broadcast"`
	FinalQueue   []Question  `json:"final_queue"`
	Notes        []Question  `json:"notes"`
	Answers      []Answer    `json:"answers"`
	Lessons      []Lesson    `json:"lessons"`
	Pause        PauseWindow `json:"pause"`
	CurrentTopic string      `json:"current_topic"`
	Done         bool        `json:"done"`
}

// View returns a consistent snapshot with the answer tail capped at n.
func (s *Store) View(n int) StateView {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := s.answers
	if n > 0 && len(answers) > n {
		answers = answers[len(answers)-n:]
	}
	return StateView{
		Questions:    derefQuestions(s.questions),
		Broadcast:    derefQuestions(s.broadcast),
		FinalQueue:   derefQuestions(s.finalQueue),
		Notes:        derefQuestions(s.notes),
		Answers:      append([]Answer(nil), answers...),
		Lessons:      append([]Lesson(nil), s.lessons...),
		Pause:        s.pause,
		CurrentTopic: s.currentTopicLocked(),
		Done:         s.done,
	}
}

// MetricsView returns a copy of the counters.
func (s *Store) MetricsView() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := newMetrics()
	for k, v := range s.metrics.Routes {
		out.Routes[k] = v
	}
	for k, v := range s.metrics.Irrelevance {
		out.Irrelevance[k] = v
	}
	return out
}

// upsertEndTopicInsertLocked maintains the single pending end_topic
// placeholder for the current topic: every collected question bumps the
// version and rewrites the text to enumerate the batch so far.
func (s *Store) upsertEndTopicInsertLocked() {
	topicID := s.currentTopicLocked()
	var placeholder *Insert
	for _, ins := range s.inserts {
		if ins.Mode == ModeEndTopic && ins.Pending {
			placeholder = ins
			break
		}
	}
	if placeholder == nil {
		placeholder = &Insert{
			ID:        "ins_" + uuid.NewString(),
			Mode:      ModeEndTopic,
			TopicID:   topicID,
			CreatedAt: s.now(),
			Pending:   true,
		}
		s.inserts = append(s.inserts, placeholder)
	}

	var ids []string
	var lines []string
	n := 0
	for _, q := range s.broadcast {
		if q.Route != classifier.RouteEndTopic {
			continue
		}
		n++
		ids = append(ids, q.ID)
		lines = append(lines, fmt.Sprintf("%d. %s", n, q.Text))
	}
	placeholder.QuestionIDs = ids
	placeholder.Version++
	placeholder.Text = fmt.Sprintf("Perguntas acumuladas para o fim do tópico %s (%d):\n%s",
		topicID, n, strings.Join(lines, "\n"))
}

func (s *Store) rememberIgnoredLocked(text string) {
	key := classifier.NormalizeKey(text)
	s.recentIgnored = append(s.recentIgnored, key)
	if len(s.recentIgnored) > maxRecentIgnored {
		s.recentIgnored = s.recentIgnored[len(s.recentIgnored)-maxRecentIgnored:]
	}
}

func (s *Store) findQuestionLocked(id string) *Question {
	for _, q := range s.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (s *Store) removeQuestionLocked(id string) {
	s.questions = removeByID(s.questions, id)
	s.broadcast = removeByID(s.broadcast, id)
	s.finalQueue = removeByID(s.finalQueue, id)
	s.notes = removeByID(s.notes, id)
}

func (s *Store) persistLocked() {
	if s.sink == nil {
		return
	}
	snap := Snapshot{
		SessionID:    s.sessionID,
		Plan:         s.plan,
		Lessons:      append([]Lesson(nil), s.lessons...),
		Questions:    derefQuestions(s.questions),
		Broadcast:    derefQuestions(s.broadcast),
		FinalQueue:   derefQuestions(s.finalQueue),
		Notes:        derefQuestions(s.notes),
		Answers:      append([]Answer(nil), s.answers...),
		Pause:        s.pause,
		CurrentTopic: s.currentTopicLocked(),
		Done:         s.done,
		Metrics:      s.metrics,
		UpdatedAt:    s.now(),
	}
	for _, ins := range s.inserts {
		snap.Inserts = append(snap.Inserts, *ins)
	}
	if s.topicIdx < len(s.plan) && s.subIdx < len(s.plan[s.topicIdx].Subtasks) {
		snap.CurrentSub = s.plan[s.topicIdx].Subtasks[s.subIdx].ID
	}
	if err := s.sink.Persist(snap); err != nil {
		s.logger.Warn("SessionStore", "persist failed, in-memory state remains authoritative", map[string]interface{}{
			"session_id": s.sessionID,
			"error":      err.Error(),
		})
	}
}

func removeByID(qs []*Question, id string) []*Question {
	out := qs[:0]
	for _, q := range qs {
		if q.ID != id {
			out = append(out, q)
		}
	}
	return out
}

func derefQuestions(qs []*Question) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, *q)
	}
	return out
}

func uniqueCitations(raw string) []string {
	matches := citationPattern.FindAllString(raw, -1)
	seen := make(map[string]struct{}, len(matches))
	var uniq []string
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		uniq = append(uniq, m)
	}
	return uniq
}
