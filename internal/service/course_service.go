package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"ai-livecourse-be/internal/config"
	"ai-livecourse-be/internal/dto"
	"ai-livecourse-be/internal/model"
	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/internal/pkg/serverutils"
	"ai-livecourse-be/internal/repository/contract"
	"ai-livecourse-be/pkg/answerer"
	"ai-livecourse-be/pkg/classifier"
	"ai-livecourse-be/pkg/course/session"
	"ai-livecourse-be/pkg/events"
	"ai-livecourse-be/pkg/nats"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// maxNextSteps bounds how far one /next call may scan past already-generated
// subtasks before giving up.
const maxNextSteps = 8

// defaultQuestionPause backs the PAUSE route when config carries no value.
const defaultQuestionPause = 4500 * time.Millisecond

type ICourseService interface {
	InitSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponseCourse, error)
	Send(ctx context.Context, sessionID string, req *dto.SendQuestionRequest) (*dto.SendQuestionResponse, error)
	Next(ctx context.Context, sessionID string) (bool, error)
	Pause(ctx context.Context, sessionID string, req *dto.PauseRequest) (*dto.PauseResponse, error)
	Resume(ctx context.Context, sessionID string) (*dto.PauseResponse, error)
	Override(ctx context.Context, sessionID string, req *dto.OverrideRouteRequest) error
	Refine(ctx context.Context, sessionID string, req *dto.RefineRequest) (*session.Lesson, error)
	End(ctx context.Context, sessionID string) error
	State(ctx context.Context, sessionID string) (*session.StateView, error)
	Metrics(ctx context.Context, sessionID string) (*session.Metrics, error)
	SeedMaterial(ctx context.Context, req *dto.SeedMaterialRequest) error
	GetStore(sessionID string) (*session.Store, error)
}

type courseService struct {
	mu       sync.RWMutex
	sessions map[string]*session.Store

	pipeline     *classifier.Pipeline
	answerer     *answerer.RAGAnswerer
	generator    *answerer.LessonGenerator
	materialRepo contract.MaterialRepository
	sink         session.PersistSink
	publisher    *nats.Publisher
	cfg          config.CourseConfig
	logger       logger.ILogger
}

func NewCourseService(
	pipeline *classifier.Pipeline,
	ragAnswerer *answerer.RAGAnswerer,
	materialRepo contract.MaterialRepository,
	sink session.PersistSink,
	publisher *nats.Publisher,
	cfg config.CourseConfig,
	log logger.ILogger,
) ICourseService {
	return &courseService{
		sessions:     make(map[string]*session.Store),
		pipeline:     pipeline,
		answerer:     ragAnswerer,
		generator:    answerer.NewLessonGenerator(ragAnswerer),
		materialRepo: materialRepo,
		sink:         sink,
		publisher:    publisher,
		cfg:          cfg,
		logger:       log,
	}
}

func (s *courseService) InitSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponseCourse, error) {
	plan := planFromDTO(req.Plan)
	if len(plan) == 0 {
		plan = defaultPlan()
	}

	sessionID := req.SessionId
	if sessionID == "" {
		sessionID = "course_" + uuid.NewString()
	}

	store := session.NewStore(sessionID, plan, s.sink, s.logger)

	s.mu.Lock()
	s.sessions[sessionID] = store
	s.mu.Unlock()

	s.logger.Info("CourseService", "Session initialized", map[string]interface{}{
		"session_id": sessionID,
		"topics":     len(plan),
	})
	s.publishEvent(ctx, "COURSE_SESSION_STARTED", map[string]interface{}{
		"session_id": sessionID,
		"topics":     len(plan),
	})

	return &dto.CreateSessionResponseCourse{
		SessionId: sessionID,
		Plan:      planToDTO(plan),
	}, nil
}

// Send runs the full ingestion path: record the question, settle irrelevance
// through the layered pipeline, resolve the final route, apply it, and answer
// inline when the route is CHAT_NOW.
func (s *courseService) Send(ctx context.Context, sessionID string, req *dto.SendQuestionRequest) (*dto.SendQuestionResponse, error) {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return nil, serverutils.NotFound("Session not found")
	}

	q := store.Ingest(req.Text, "audience")

	topics := classifier.TopicContext{
		CurrentTopic: store.CurrentTopicID(),
		FutureTopics: store.FutureTopicIDs(),
	}
	decision, err := s.pipeline.Run(ctx, req.Text, topics, store.RecentIgnored())
	if err != nil {
		return nil, serverutils.Unprocessable("Classification failed", err)
	}

	if decision.Irrelevant {
		store.Classify(q.ID, classifier.RouteIgnore, session.ClassifyOptions{Reason: decision.Reason})
		store.CountIrrelevance(decision.Source)
		return &dto.SendQuestionResponse{
			QuestionId: q.ID,
			Route:      string(classifier.RouteIgnore),
			Source:     string(decision.Source),
			Irrelevant: true,
			Reason:     decision.Reason,
		}, nil
	}

	res := classifier.ResolveRoute(req.Text, decision.Class)
	store.Classify(q.ID, res.Route, session.ClassifyOptions{
		NeedsRAG: res.NeedsRAG,
		Reason:   decision.Class.Reason,
	})

	out := &dto.SendQuestionResponse{
		QuestionId: q.ID,
		Route:      string(res.Route),
		Source:     string(classifier.SourceClassifier),
		Reason:     decision.Class.Reason,
	}

	switch res.Route {
	case classifier.RouteChatNow:
		out.Answer = s.answerNow(ctx, store, q.ID, req.Text)
	case classifier.RoutePause:
		// A PAUSE-routed question opens the narration pause so the queued
		// answer lands before stepping resumes.
		d := s.cfg.QuestionPause
		if d <= 0 {
			d = defaultQuestionPause
		}
		store.RequestPause(d, "question")
	}
	return out, nil
}

// answerNow produces the short synchronous reply for CHAT_NOW questions. A
// generation failure degrades to an apology text instead of failing the send.
func (s *courseService) answerNow(ctx context.Context, store *session.Store, questionID, text string) *dto.AnswerDTO {
	full, refs, err := s.answerer.Answer(ctx, text, store.CurrentTopicID())
	if err != nil {
		s.logger.Warn("CourseService", "Inline answer failed", map[string]interface{}{
			"question_id": questionID,
			"error":       err.Error(),
		})
		full = "Falha ao gerar resposta: " + err.Error()
		refs = nil
	}
	short := answerer.ShortAnswer(full)
	ans := store.PushAnswer(questionID, short, session.AnswerChatNow, refs)
	return &dto.AnswerDTO{
		QuestionId: ans.QuestionID,
		Text:       ans.Text,
		Mode:       ans.Mode,
		References: ans.Refs,
		CreatedAt:  ans.CreatedAt,
	}
}

func (s *courseService) Next(ctx context.Context, sessionID string) (bool, error) {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return false, serverutils.NotFound("Session not found")
	}
	// Skips over already-generated subtasks so one /next call always makes
	// visible progress when content remains.
	return store.StepUntilNewLesson(ctx, s.generator, maxNextSteps)
}

func (s *courseService) Pause(ctx context.Context, sessionID string, req *dto.PauseRequest) (*dto.PauseResponse, error) {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return nil, serverutils.NotFound("Session not found")
	}
	duration := s.cfg.DefaultPause
	if req.DurationMs > 0 {
		duration = time.Duration(req.DurationMs) * time.Millisecond
	}
	w := store.RequestPause(duration, req.Reason)
	until := w.PauseUntil
	return &dto.PauseResponse{IsPaused: w.IsPaused, PauseUntil: &until, Reason: req.Reason}, nil
}

func (s *courseService) Resume(ctx context.Context, sessionID string) (*dto.PauseResponse, error) {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return nil, serverutils.NotFound("Session not found")
	}
	store.ForceResume()
	return &dto.PauseResponse{IsPaused: false}, nil
}

func (s *courseService) Override(ctx context.Context, sessionID string, req *dto.OverrideRouteRequest) error {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return serverutils.NotFound("Session not found")
	}
	route := classifier.Route(req.Route)
	if !classifier.ValidRoute(route) && route != classifier.RouteFinal && route != classifier.RouteNote {
		return serverutils.BadRequest("Unknown route: " + req.Route)
	}
	store.OverrideRoute(req.QuestionId, route)
	return nil
}

func (s *courseService) Refine(ctx context.Context, sessionID string, req *dto.RefineRequest) (*session.Lesson, error) {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return nil, serverutils.NotFound("Session not found")
	}
	lesson, err := store.Refine(req.LessonId, req.Instruction)
	if err != nil {
		return nil, serverutils.NotFound("Lesson not found")
	}
	return lesson, nil
}

func (s *courseService) End(ctx context.Context, sessionID string) error {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return serverutils.NotFound("Session not found")
	}
	store.MarkDone()
	s.publishEvent(ctx, "COURSE_SESSION_ENDED", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *courseService) State(ctx context.Context, sessionID string) (*session.StateView, error) {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return nil, serverutils.NotFound("Session not found")
	}
	view := store.View(s.cfg.AnswerTailLength)
	return &view, nil
}

func (s *courseService) Metrics(ctx context.Context, sessionID string) (*session.Metrics, error) {
	store, err := s.GetStore(sessionID)
	if err != nil {
		return nil, serverutils.NotFound("Session not found")
	}
	m := store.MetricsView()
	return &m, nil
}

func (s *courseService) SeedMaterial(ctx context.Context, req *dto.SeedMaterialRequest) error {
	material := &model.CourseMaterial{
		Id:      uuid.New(),
		TopicId: req.TopicId,
		Title:   req.Title,
		Content: req.Content,
	}
	return s.materialRepo.Seed(ctx, []*model.CourseMaterial{material})
}

func (s *courseService) GetStore(sessionID string) (*session.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	store, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return store, nil
}

// publishEvent fires a lifecycle event onto the NATS bus. The bus is
// optional; with no publisher wired the call is a no-op.
func (s *courseService) publishEvent(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	ev := events.NewBaseEvent(eventType, payload)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("CourseService", "Failed to publish lifecycle event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func planFromDTO(topics []dto.TopicDTO) []session.Topic {
	plan := make([]session.Topic, 0, len(topics))
	for _, t := range topics {
		subs := make([]session.Subtask, 0, len(t.Subtasks))
		for _, st := range t.Subtasks {
			subs = append(subs, session.Subtask{ID: st.Id, Title: st.Title, Goal: st.Goal})
		}
		plan = append(plan, session.Topic{ID: t.Id, Title: t.Title, Subtasks: subs})
	}
	return plan
}

func planToDTO(plan []session.Topic) []dto.TopicDTO {
	out := make([]dto.TopicDTO, 0, len(plan))
	for _, t := range plan {
		subs := make([]dto.SubtaskDTO, 0, len(t.Subtasks))
		for _, st := range t.Subtasks {
			subs = append(subs, dto.SubtaskDTO{Id: st.ID, Title: st.Title, Goal: st.Goal})
		}
		out = append(out, dto.TopicDTO{Id: t.ID, Title: t.Title, Subtasks: subs})
	}
	return out
}

// defaultPlan mirrors the seeded demo course used when a session starts
// without an explicit plan.
func defaultPlan() []session.Topic {
	return []session.Topic{
		{
			ID:    "t1",
			Title: "Fundamentos de LLMs",
			Subtasks: []session.Subtask{
				{ID: "t1s1", Title: "O que é um modelo de linguagem", Goal: "Definir LLM e dar exemplos"},
				{ID: "t1s2", Title: "Tokens e contexto", Goal: "Explicar tokenização e janela de contexto"},
			},
		},
		{
			ID:    "t2",
			Title: "RAG na prática",
			Subtasks: []session.Subtask{
				{ID: "t2s1", Title: "Busca e recuperação", Goal: "Mostrar como recuperar trechos relevantes"},
				{ID: "t2s2", Title: "Montagem de prompt", Goal: "Combinar contexto recuperado com a pergunta"},
			},
		},
	}
}
