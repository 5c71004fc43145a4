package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "adaptive-assessment-service"
	EventVersion = "1.0"
)

const (
	TypeAnswerRecorded   = "answer_recorded"
	TypeSessionCompleted = "session_completed"
)

// Event is the envelope published for every domain notification.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// AnswerRecordedData is emitted after every judged answer.
type AnswerRecordedData struct {
	UserID         string  `json:"user_id"`
	SessionID      uint    `json:"session_id"`
	QuestionID     uint    `json:"question_id"`
	TopicID        string  `json:"topic_id"`
	IsCorrect      bool    `json:"is_correct"`
	Difficulty     float64 `json:"difficulty"`
	ResponseTimeMs int64   `json:"response_time_ms"`
}

// SessionCompletedData is emitted once a session reaches completed.
type SessionCompletedData struct {
	UserID            string  `json:"user_id"`
	SessionID         uint    `json:"session_id"`
	CorrectAnswers    int     `json:"correct_answers"`
	AnsweredQuestions int     `json:"answered_questions"`
	CompletedSessions int64   `json:"completed_sessions"`
	EstimatedAbility  float64 `json:"estimated_ability"`
	EndReason         string  `json:"end_reason"`
}

// EventPublisher delivers events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
