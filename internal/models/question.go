package models

import (
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionFillInBlank QuestionType = "fill-in-blank"
	QuestionShortAnswer QuestionType = "short-answer"
)

// Question is owned by the content service; the engine only reads it and
// keeps the usage statistics up to date.
type Question struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	ChapterID string       `json:"chapter_id" gorm:"not null;index;size:100"`
	TopicID   string       `json:"topic_id" gorm:"not null;index:idx_question_topic_difficulty;size:100"`
	Grade     *int         `json:"grade" gorm:"index"`
	Type      QuestionType `json:"question_type" gorm:"column:question_type;not null;size:20"`
	Text      string       `json:"text" gorm:"type:text;not null"`

	// 0 = easiest, 1 = hardest
	Difficulty float64 `json:"difficulty" gorm:"not null;index:idx_question_topic_difficulty"`

	// mcq
	Choices      datatypes.JSONSlice[string] `json:"choices,omitempty" gorm:"type:jsonb"`
	CorrectIndex *int                        `json:"correct_index,omitempty"`

	// fill-in-blank and short-answer
	CorrectAnswer   *string                     `json:"correct_answer,omitempty" gorm:"type:text"`
	AcceptedAnswers datatypes.JSONSlice[string] `json:"accepted_answers,omitempty" gorm:"type:jsonb"`

	Explanation *string `json:"explanation,omitempty" gorm:"type:text"`
	IsActive    bool    `json:"is_active" gorm:"not null;index"`

	// Usage statistics maintained by the engine
	UsageCount          int     `json:"usage_count" gorm:"not null;default:0"`
	CorrectCount        int     `json:"correct_count" gorm:"not null;default:0"`
	SuccessRate         float64 `json:"success_rate" gorm:"not null;default:0"`
	AverageResponseTime float64 `json:"average_response_time"` // ms

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// RecordUsage folds one answered presentation into the running statistics.
func (q *Question) RecordUsage(isCorrect bool, responseTimeMs int64) {
	q.UsageCount++
	if isCorrect {
		q.CorrectCount++
	}
	q.SuccessRate = float64(q.CorrectCount) / float64(q.UsageCount)
	q.AverageResponseTime = (q.AverageResponseTime*float64(q.UsageCount-1) + float64(responseTimeMs)) / float64(q.UsageCount)
}
