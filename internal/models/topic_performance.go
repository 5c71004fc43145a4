package models

import (
	"time"
)

type MasteryLevel string

const (
	MasteryBeginner   MasteryLevel = "beginner"
	MasteryDeveloping MasteryLevel = "developing"
	MasteryProficient MasteryLevel = "proficient"
	MasteryAdvanced   MasteryLevel = "advanced"
)

const (
	DefaultTopicDifficulty = 0.5
	MinTopicDifficulty     = 0.1
	MaxTopicDifficulty     = 0.9
	DifficultyStep         = 0.1
)

// TopicPerformance is one student's running record for one topic.
type TopicPerformance struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	StudentID string `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_student_topic"`
	TopicID   string `json:"topic_id" gorm:"not null;size:100;uniqueIndex:idx_student_topic"`

	AttemptsCount int     `json:"attempts_count"`
	CorrectCount  int     `json:"correct_count"`
	AverageScore  float64 `json:"average_score"`

	CurrentDifficulty    float64 `json:"current_difficulty" gorm:"not null;default:0.5"`
	ConsecutiveFailures  int     `json:"consecutive_failures"`
	ConsecutiveSuccesses int     `json:"consecutive_successes"`

	MasteryLevel MasteryLevel `json:"mastery_level" gorm:"not null;size:20;default:beginner"`

	TotalTimeSpent      int64      `json:"total_time_spent"`      // ms
	AverageResponseTime float64    `json:"average_response_time"` // ms
	LastAttemptAt       *time.Time `json:"last_attempt_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TopicPerformance) TableName() string {
	return "topic_performances"
}

// Reset clears the record back to a first-attempt state, keeping identity.
func (t *TopicPerformance) Reset() {
	t.AttemptsCount = 0
	t.CorrectCount = 0
	t.AverageScore = 0
	t.CurrentDifficulty = DefaultTopicDifficulty
	t.ConsecutiveFailures = 0
	t.ConsecutiveSuccesses = 0
	t.MasteryLevel = MasteryBeginner
	t.TotalTimeSpent = 0
	t.AverageResponseTime = 0
	t.LastAttemptAt = nil
}
