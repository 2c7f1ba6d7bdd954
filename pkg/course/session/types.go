package session

import (
	"context"
	"time"

	"ai-livecourse-be/pkg/classifier"
)

// Question is one free-text audience submission. Route, NeedsRAG and Reason
// are set exactly once by classification; re-classification happens only via
// an explicit manual override.
type Question struct {
	ID         string           `json:"id"`
	Text       string           `json:"text"`
	CreatedAt  time.Time        `json:"created_at"`
	Origin     string           `json:"origin"`
	Route      classifier.Route `json:"route,omitempty"`
	NeedsRAG   bool             `json:"needs_rag"`
	Reason     string           `json:"reason,omitempty"`
	Classified bool             `json:"classified"`
}

// InsertMode partitions presenter-facing content blocks.
type InsertMode string

const (
	ModePause        InsertMode = "pause"
	ModeEndTopic     InsertMode = "end_topic"
	ModeFinalSession InsertMode = "final_session"
)

// Insert is a presenter-facing content block aggregating one or more answered
// questions. For end_topic a single pending placeholder accumulates questions
// per topic; its Version strictly increases with every collected question.
type Insert struct {
	ID          string     `json:"id"`
	Mode        InsertMode `json:"mode"`
	TopicID     string     `json:"topic_id,omitempty"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
	QuestionIDs []string   `json:"question_ids"`
	Pending     bool       `json:"pending"`
	Version     int64      `json:"version"`
}

// AnswerMode mirrors the insert mode that produced the answer, plus chat_now
// for questions answered synchronously.
const (
	AnswerChatNow      = "chat_now"
	AnswerPause        = "pause"
	AnswerEndTopic     = "end_topic"
	AnswerFinalSession = "final_session"
)

// Answer is immutable once created.
type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	Text       string    `json:"text"`
	Mode       string    `json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
	Refs       []string  `json:"refs,omitempty"`
}

// PauseWindow is the time-boxed narration pause. PauseUntil only ever moves
// forward; it clears once current time passes it.
type PauseWindow struct {
	IsPaused   bool      `json:"is_paused"`
	PauseUntil time.Time `json:"pause_until,omitempty"`
}

// Subtask is one content unit inside a topic.
type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Goal  string `json:"goal,omitempty"`
}

// Topic is one planned course topic.
type Topic struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Subtasks []Subtask `json:"subtasks"`
}

// Lesson is one generated content block for a subtask.
type Lesson struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	SubtaskID string    `json:"subtask_id"`
	Content   string    `json:"content"`
	Citations []string  `json:"citations"`
	Refined   bool      `json:"refined,omitempty"`
	RefinedAt time.Time `json:"refined_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClassifiedEvent is one audit record appended per classification mutation.
type ClassifiedEvent struct {
	QuestionID string           `json:"question_id"`
	Route      classifier.Route `json:"route"`
	Timestamp  time.Time        `json:"timestamp"`
	Reason     string           `json:"reason,omitempty"`
}

// Answerer is the opaque answering capability: takes a question and topic,
// returns cited prose plus the referenced document ids.
type Answerer interface {
	Answer(ctx context.Context, question, topicID string) (text string, refs []string, err error)
}

// ContentGenerator is the opaque lesson-content capability.
type ContentGenerator interface {
	GenerateLesson(ctx context.Context, topicID string, subtask Subtask) (content string, refs []string, err error)
}

// Snapshot is the JSON-serializable full state handed to the persistence
// sink after each mutation.
type Snapshot struct {
	SessionID    string            `json:"session_id"`
	Plan         []Topic           `json:"plan"`
	Lessons      []Lesson          `json:"lessons"`
	Questions    []Question        `json:"questions"`
	Broadcast    []Question        `json:"broadcast"`
	FinalQueue   []Question        `json:"final_queue"`
	Notes        []Question        `json:"notes"`
	Inserts      []Insert          `json:"inserts"`
	Answers      []Answer          `json:"answers"`
	Pause        PauseWindow       `json:"pause"`
	CurrentTopic string            `json:"current_topic"`
	CurrentSub   string            `json:"current_subtask"`
	Done         bool              `json:"done"`
	Metrics      Metrics           `json:"metrics"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// PersistSink is the opaque durable sink invoked after each mutation.
// Failures are recoverable: the in-memory state stays authoritative.
type PersistSink interface {
	Persist(snap Snapshot) error
}
