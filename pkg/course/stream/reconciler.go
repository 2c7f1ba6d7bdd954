package stream

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/pkg/course/session"
)

// DefaultTickInterval is the reconciliation period.
const DefaultTickInterval = 250 * time.Millisecond

// FlushLimits bounds how many questions a consolidation flush answers.
// Zero values fall back to the session defaults.
type FlushLimits struct {
	EndTopic int
	Final    int
}

// Reconciler is the level-triggered loop that diffs the session store
// against what was last emitted and pushes only deltas. It also drives pause
// expiry and content-generation stepping. One reconciler per session; ticks
// never overlap.
type Reconciler struct {
	store     *session.Store
	answerer  session.Answerer
	generator session.ContentGenerator
	sink      Sink
	logger    logger.ILogger
	interval  time.Duration
	limits    FlushLimits

	closed atomic.Bool

	// Last-emitted cursors. Repeated ticks are idempotent no-ops when
	// nothing changed, and a reconnecting consumer resumes without
	// re-deriving diffs.
	auditCursor     int
	lessonCursor    int
	emittedVersions map[string]int64
	lastTopic       string
	topicSeen       bool
	doneFlushed     bool
}

func NewReconciler(store *session.Store, answerer session.Answerer, generator session.ContentGenerator, sink Sink, interval time.Duration, limits FlushLimits, log logger.ILogger) *Reconciler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if limits.EndTopic <= 0 {
		limits.EndTopic = session.DefaultEndTopicLimit
	}
	if limits.Final <= 0 {
		limits.Final = session.DefaultFinalLimit
	}
	return &Reconciler{
		store:           store,
		answerer:        answerer,
		generator:       generator,
		sink:            sink,
		logger:          log,
		interval:        interval,
		limits:          limits,
		emittedVersions: make(map[string]int64),
	}
}

// Close flags the loop for termination; the in-flight tick finishes first.
func (r *Reconciler) Close() {
	r.closed.Store(true)
}

// Run ticks until the session is done with no pending inserts, the context
// is cancelled, or Close is called. A failed tick step never terminates the
// loop; each step is isolated so one failure does not block the rest.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.closed.Load() {
				return
			}
			if finished := r.tick(ctx); finished {
				return
			}
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) (finished bool) {
	sid := r.store.SessionID()

	// 1. Heartbeat with current pause state.
	r.sink.Emit(sid, Event{Type: EventHeartbeat, Data: heartbeatPayload(r.store.PauseState(), time.Now())})

	// 2. Pause expiry.
	if r.store.ExpirePause() {
		r.sink.Emit(sid, Event{Type: EventLog, Data: LogPayload{Msg: "pause_expired"}})
	}

	// 3. Pause consolidation (no-op while paused or with an empty queue).
	r.step(sid, "consolidate_pause", func() error {
		r.store.ConsolidatePause(ctx, r.answerer)
		return nil
	})

	// 4. Drain newly recorded classification audit events.
	events, cursor := r.store.ClassifiedSince(r.auditCursor)
	r.auditCursor = cursor
	for _, ev := range events {
		r.sink.Emit(sid, Event{Type: EventClassified, Data: ClassifiedPayload{
			QuestionID: ev.QuestionID,
			Route:      ev.Route,
			Timestamp:  ev.Timestamp.UnixMilli(),
			Reason:     ev.Reason,
		}})
	}

	// 5. Topic change since the previous tick flushes the finished topic.
	current := r.store.CurrentTopicID()
	if r.topicSeen && current != r.lastTopic && r.lastTopic != "" {
		previous := r.lastTopic
		r.step(sid, "flush_end_topic", func() error {
			r.store.FlushEndTopic(ctx, r.answerer, previous, r.limits.EndTopic)
			return nil
		})
	}
	r.lastTopic = current
	r.topicSeen = true

	// 6. Pending inserts whose version advanced since last emission.
	// 7. Newly finalized inserts: emitted exactly once, then pruned.
	for _, ins := range r.store.Inserts() {
		last, known := r.emittedVersions[ins.ID]
		if ins.Pending {
			if !known || ins.Version > last {
				r.emittedVersions[ins.ID] = ins.Version
				r.sink.Emit(sid, Event{Type: EventInsert, Data: insertPayload(ins)})
			}
			continue
		}
		r.emittedVersions[ins.ID] = ins.Version
		r.sink.Emit(sid, Event{Type: EventInsert, Data: insertPayload(ins)})
		r.store.RemoveInsert(ins.ID)
	}

	// Content-generation stepping (suppressed by the store while paused).
	if !r.store.Done() {
		r.step(sid, "generation_step", func() error {
			_, err := r.store.Step(ctx, r.generator)
			return err
		})
	}

	// 8. Newly appended lesson content.
	lessons, lcursor := r.store.LessonsSince(r.lessonCursor)
	base := r.lessonCursor
	r.lessonCursor = lcursor
	for i, l := range lessons {
		r.sink.Emit(sid, Event{Type: EventLesson, Data: LessonPayload{
			ID:        l.ID,
			TopicID:   l.TopicID,
			SubtaskID: l.SubtaskID,
			Content:   l.Content,
			Citations: l.Citations,
			Index:     base + i,
		}})
	}

	// 9. Session done: one last flush pass, then terminate only after the
	// pending set drains (finalized inserts emitted on later ticks).
	if r.store.Done() {
		if !r.doneFlushed {
			r.doneFlushed = true
			r.step(sid, "final_flush", func() error {
				r.store.FlushEndTopic(ctx, r.answerer, r.lastTopic, r.limits.EndTopic)
				r.store.FlushFinal(ctx, r.answerer, r.limits.Final)
				return nil
			})
		}
		if len(r.store.Inserts()) == 0 {
			r.sink.Emit(sid, Event{Type: EventDone, Data: DonePayload{Total: r.lessonCursor}})
			return true
		}
	}
	return false
}

// step isolates one tick stage: a failure or panic is logged and surfaced as
// a stream error event without aborting the tick or killing the loop.
func (r *Reconciler) step(sid, name string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Reconciler", "tick step panicked", map[string]interface{}{
				"session_id": sid,
				"step":       name,
				"panic":      fmt.Sprintf("%v", p),
			})
			r.sink.Emit(sid, Event{Type: EventError, Data: ErrorPayload{Message: fmt.Sprintf("%s: panic: %v", name, p)}})
		}
	}()
	if err := fn(); err != nil {
		r.logger.Warn("Reconciler", "tick step failed", map[string]interface{}{
			"session_id": sid,
			"step":       name,
			"error":      err.Error(),
		})
		r.sink.Emit(sid, Event{Type: EventError, Data: ErrorPayload{Message: name + ": " + err.Error()}})
	}
}
