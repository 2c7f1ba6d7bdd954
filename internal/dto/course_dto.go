package dto

import "time"

type SubtaskDTO struct {
	Id    string `json:"id" validate:"required"`
	Title string `json:"title" validate:"required"`
	Goal  string `json:"goal,omitempty"`
}

type TopicDTO struct {
	Id       string       `json:"id" validate:"required"`
	Title    string       `json:"title" validate:"required"`
	Subtasks []SubtaskDTO `json:"subtasks" validate:"required,min=1"`
}

type CreateSessionRequest struct {
	SessionId string     `json:"session_id,omitempty"`
	Goal      string     `json:"goal,omitempty"`
	Plan      []TopicDTO `json:"plan,omitempty"`
}

type CreateSessionResponseCourse struct {
	SessionId string     `json:"session_id"`
	Plan      []TopicDTO `json:"plan"`
}

type SendQuestionRequest struct {
	Text string `json:"text" validate:"required"`
}

type SendQuestionResponse struct {
	QuestionId string `json:"question_id,omitempty"`
	Route      string `json:"route"`
	Source     string `json:"source"`
	Irrelevant bool   `json:"irrelevant"`
	Reason     string `json:"reason,omitempty"`
	// Populated only for CHAT_NOW routed questions answered inline.
	Answer *AnswerDTO `json:"answer,omitempty"`
}

type AnswerDTO struct {
	QuestionId string   `json:"question_id"`
	Text       string   `json:"text"`
	Mode       string   `json:"mode"`
	References []string `json:"references,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type PauseRequest struct {
	DurationMs int    `json:"duration_ms,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type PauseResponse struct {
	IsPaused   bool       `json:"is_paused"`
	PauseUntil *time.Time `json:"pause_until,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type OverrideRouteRequest struct {
	QuestionId string `json:"question_id" validate:"required"`
	Route      string `json:"route" validate:"required"`
}

type RefineRequest struct {
	LessonId    string `json:"lesson_id" validate:"required"`
	Instruction string `json:"instruction" validate:"required"`
}

type SeedMaterialRequest struct {
	TopicId string `json:"topic_id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}
