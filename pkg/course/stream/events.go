package stream

import (
	"time"

	"ai-livecourse-be/pkg/classifier"
	"ai-livecourse-be/pkg/course/session"
)

// Event kinds pushed to the presentation client. Payloads are flat,
// JSON-serializable records.
const (
	EventHeartbeat  = "heartbeat"
	EventClassified = "classified"
	EventInsert     = "insert"
	EventLesson     = "lesson"
	EventLog        = "log"
	EventDone       = "done"
	EventError      = "error"
)

// Event is one unit of the push stream.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Sink consumes the push stream (typically the websocket hub). Emit must not
// block the tick: slow consumers are the sink's problem.
type Sink interface {
	Emit(sessionID string, event Event)
}

type HeartbeatPayload struct {
	Timestamp  int64 `json:"timestamp"`
	IsPaused   bool  `json:"isPaused"`
	PauseUntil int64 `json:"pauseUntil,omitempty"`
}

type ClassifiedPayload struct {
	QuestionID string           `json:"questionId"`
	Route      classifier.Route `json:"route"`
	Timestamp  int64            `json:"timestamp"`
	Reason     string           `json:"reason,omitempty"`
}

type InsertPayload struct {
	ID          string             `json:"id"`
	Mode        session.InsertMode `json:"mode"`
	Text        string             `json:"text"`
	Timestamp   int64              `json:"timestamp"`
	Version     int64              `json:"version"`
	Pending     bool               `json:"pending"`
	QuestionIDs []string           `json:"questionIds"`
}

type LessonPayload struct {
	ID        string   `json:"id"`
	TopicID   string   `json:"topicId"`
	SubtaskID string   `json:"subtaskId"`
	Content   string   `json:"content"`
	Citations []string `json:"citations"`
	Index     int      `json:"index"`
}

type LogPayload struct {
	Msg string `json:"msg"`
}

type DonePayload struct {
	Total int `json:"total"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func heartbeatPayload(w session.PauseWindow, now time.Time) HeartbeatPayload {
	p := HeartbeatPayload{Timestamp: now.UnixMilli(), IsPaused: w.IsPaused}
	if w.IsPaused {
		p.PauseUntil = w.PauseUntil.UnixMilli()
	}
	return p
}

func insertPayload(ins session.Insert) InsertPayload {
	return InsertPayload{
		ID:          ins.ID,
		Mode:        ins.Mode,
		Text:        ins.Text,
		Timestamp:   ins.CreatedAt.UnixMilli(),
		Version:     ins.Version,
		Pending:     ins.Pending,
		QuestionIDs: ins.QuestionIDs,
	}
}
