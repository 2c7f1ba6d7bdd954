package service

import (
	"context"
	"sync"

	"ai-livecourse-be/internal/config"
	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/answerer"
	"ai-livecourse-be/pkg/course/stream"
)

// IStreamService owns the per-session reconciliation loops. A loop starts
// lazily when the first viewer attaches and is flagged closed when the last
// one leaves or the session finishes.
type IStreamService interface {
	AttachSession(sessionID string) error
	DetachSession(sessionID string)
	Shutdown()
}

type streamService struct {
	mu          sync.Mutex
	reconcilers map[string]*stream.Reconciler

	course   ICourseService
	answerer *answerer.RAGAnswerer
	sink     stream.Sink
	cfg      config.CourseConfig
	logger   logger.ILogger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewStreamService(
	course ICourseService,
	ragAnswerer *answerer.RAGAnswerer,
	sink stream.Sink,
	cfg config.CourseConfig,
	log logger.ILogger,
) IStreamService {
	ctx, cancel := context.WithCancel(context.Background())
	return &streamService{
		reconcilers: make(map[string]*stream.Reconciler),
		course:      course,
		answerer:    ragAnswerer,
		sink:        sink,
		cfg:         cfg,
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// AttachSession starts the session's reconciliation loop if it is not already
// running. Safe to call once per connecting viewer.
func (s *streamService) AttachSession(sessionID string) error {
	store, err := s.course.GetStore(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.reconcilers[sessionID]; running {
		return nil
	}

	gen := answerer.NewLessonGenerator(s.answerer)
	limits := stream.FlushLimits{EndTopic: s.cfg.EndTopicLimit, Final: s.cfg.FinalLimit}
	rec := stream.NewReconciler(store, s.answerer, gen, s.sink, s.cfg.TickInterval, limits, s.logger)
	s.reconcilers[sessionID] = rec

	go func() {
		rec.Run(s.ctx)
		s.mu.Lock()
		delete(s.reconcilers, sessionID)
		s.mu.Unlock()
		s.logger.Info("StreamService", "Reconciler stopped", map[string]interface{}{"session_id": sessionID})
	}()

	s.logger.Info("StreamService", "Reconciler started", map[string]interface{}{"session_id": sessionID})
	return nil
}

// DetachSession flags the session's loop closed; Run drains out on its next
// tick.
func (s *streamService) DetachSession(sessionID string) {
	s.mu.Lock()
	rec, ok := s.reconcilers[sessionID]
	s.mu.Unlock()
	if ok {
		rec.Close()
	}
}

func (s *streamService) Shutdown() {
	s.cancel()
}
