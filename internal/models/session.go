package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
	SessionPaused    SessionStatus = "paused" // modeled, never entered
)

// IsTerminal reports whether the session can no longer change.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

type SessionType string

const (
	SessionTypeAdaptive SessionType = "adaptive"
	SessionTypeFixed    SessionType = "fixed"
)

type SessionMode string

const (
	ModeAssessment SessionMode = "assessment"
	ModePractice   SessionMode = "practice"
	ModeRevision   SessionMode = "revision"
)

const (
	EndReasonMaxQuestions      = "max_questions"
	EndReasonConfidenceReached = "confidence_reached"
	EndReasonNoQuestions       = "no_questions_available"
	EndReasonAbandoned         = "abandoned"
	EndReasonStale             = "stale"
)

var (
	ErrSessionTerminal     = errors.New("session is not active")
	ErrPendingItem         = errors.New("session already has an unanswered item")
	ErrItemNumberMismatch  = errors.New("session item number out of sequence")
	ErrItemAlreadyAnswered = errors.New("session item already answered")
)

type AdaptiveParameters struct {
	InitialDifficulty   float64 `json:"initial_difficulty"`
	DifficultyStep      float64 `json:"difficulty_step"`
	MaxQuestions        int     `json:"max_questions"`
	MinQuestions        int     `json:"min_questions"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

func DefaultAdaptiveParameters() AdaptiveParameters {
	return AdaptiveParameters{
		InitialDifficulty:   0.5,
		DifficultyStep:      DifficultyStep,
		MaxQuestions:        20,
		MinQuestions:        5,
		ConfidenceThreshold: 0.8,
	}
}

type AbilitySnapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Ability    float64   `json:"ability"`
	Confidence float64   `json:"confidence"`
}

// AssessmentSession is the aggregate root of one test attempt. Items are an
// append-only log; only the last item may be unanswered.
type AssessmentSession struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	StudentID   string        `json:"student_id" gorm:"not null;index;size:255;uniqueIndex:idx_one_active_session,where:status = 'active'"`
	ChapterID   string        `json:"chapter_id" gorm:"not null;index;size:100"`
	TopicID     *string       `json:"topic_id,omitempty" gorm:"size:100"`
	Grade       *int          `json:"grade,omitempty"`
	Status      SessionStatus `json:"status" gorm:"not null;size:20;index"`
	SessionType SessionType   `json:"session_type" gorm:"not null;size:20"`
	Mode        SessionMode   `json:"mode" gorm:"not null;size:20"`

	Items []SessionItem `json:"items" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`

	EstimatedAbility   float64                              `json:"estimated_ability"`
	AbilityHistory     datatypes.JSONSlice[AbilitySnapshot] `json:"ability_history" gorm:"type:jsonb"`
	AdaptiveParameters AdaptiveParameters                   `json:"adaptive_parameters" gorm:"embedded;embeddedPrefix:adaptive_"`

	AnsweredQuestions int `json:"answered_questions"`
	CorrectAnswers    int `json:"correct_answers"`
	TotalQuestions    int `json:"total_questions"`

	StartedAt  time.Time  `json:"started_at" gorm:"not null"`
	FinishedAt *time.Time `json:"finished_at"`
	EndReason  *string    `json:"end_reason" gorm:"size:50"`

	Version int `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AssessmentSession) TableName() string {
	return "assessment_sessions"
}

type SessionItem struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	SessionID      uint       `json:"session_id" gorm:"not null;uniqueIndex:idx_session_item_number"`
	QuestionID     uint       `json:"question_id" gorm:"not null;index"`
	QuestionNumber int        `json:"question_number" gorm:"not null;uniqueIndex:idx_session_item_number"`
	PresentedAt    time.Time  `json:"presented_at"`
	AnsweredAt     *time.Time `json:"answered_at"`
	AnswerIndex    *int       `json:"answer_index"`
	AnswerText     *string    `json:"answer_text" gorm:"type:text"`
	IsCorrect      *bool      `json:"is_correct"`
	ResponseTimeMs *int64     `json:"response_time_ms"`
	Difficulty     float64    `json:"difficulty"`
	Topic          string     `json:"topic" gorm:"size:100"`
}

func (SessionItem) TableName() string {
	return "session_items"
}

func (i *SessionItem) IsAnswered() bool {
	return i.AnsweredAt != nil
}

// CurrentItemIndex returns the index of the unanswered item, or -1.
func (s *AssessmentSession) CurrentItemIndex() int {
	n := len(s.Items)
	if n == 0 || s.Items[n-1].IsAnswered() {
		return -1
	}
	return n - 1
}

// CurrentItem returns the item awaiting an answer, or nil.
func (s *AssessmentSession) CurrentItem() *SessionItem {
	idx := s.CurrentItemIndex()
	if idx < 0 {
		return nil
	}
	return &s.Items[idx]
}

// ItemByNumber returns the item with the given 1-based question number.
func (s *AssessmentSession) ItemByNumber(number int) *SessionItem {
	if number < 1 || number > len(s.Items) {
		return nil
	}
	return &s.Items[number-1]
}

// AppendItem adds the next question to the log. A zero QuestionNumber is
// filled in; any other value must equal len(items)+1.
func (s *AssessmentSession) AppendItem(item SessionItem) error {
	if s.Status != SessionActive {
		return ErrSessionTerminal
	}
	if s.CurrentItem() != nil {
		return ErrPendingItem
	}
	next := len(s.Items) + 1
	if item.QuestionNumber == 0 {
		item.QuestionNumber = next
	}
	if item.QuestionNumber != next {
		return fmt.Errorf("%w: got %d, want %d", ErrItemNumberMismatch, item.QuestionNumber, next)
	}
	item.SessionID = s.ID
	s.Items = append(s.Items, item)
	s.TotalQuestions = len(s.Items)
	return nil
}

// AnswerCurrent records the answer on the pending item and updates counters.
func (s *AssessmentSession) AnswerCurrent(answerIndex *int, answerText *string, isCorrect bool, responseTimeMs int64, at time.Time) (*SessionItem, error) {
	if s.Status != SessionActive {
		return nil, ErrSessionTerminal
	}
	item := s.CurrentItem()
	if item == nil {
		return nil, ErrItemAlreadyAnswered
	}
	item.AnsweredAt = &at
	item.AnswerIndex = answerIndex
	item.AnswerText = answerText
	item.IsCorrect = &isCorrect
	item.ResponseTimeMs = &responseTimeMs

	s.AnsweredQuestions++
	if isCorrect {
		s.CorrectAnswers++
	}
	return item, nil
}

// AnsweredItems returns the answered prefix of the log.
func (s *AssessmentSession) AnsweredItems() []SessionItem {
	answered := make([]SessionItem, 0, len(s.Items))
	for _, item := range s.Items {
		if item.IsAnswered() {
			answered = append(answered, item)
		}
	}
	return answered
}

// UsedQuestionIDs returns every question already presented in this session.
func (s *AssessmentSession) UsedQuestionIDs() []uint {
	ids := make([]uint, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.QuestionID)
	}
	return ids
}

// Confidence is the evidence heuristic used by the adaptive stop rule.
func (s *AssessmentSession) Confidence() float64 {
	return ConfidenceFor(s.AnsweredQuestions)
}

func ConfidenceFor(answered int) float64 {
	c := float64(answered) / 10
	if c > 1 {
		return 1
	}
	return c
}

// IsStale reports whether an active session has outlived ttl.
func (s *AssessmentSession) IsStale(now time.Time, ttl time.Duration) bool {
	return s.Status == SessionActive && now.Sub(s.StartedAt) > ttl
}

// Finish moves the session to a terminal status.
func (s *AssessmentSession) Finish(status SessionStatus, reason string, at time.Time) error {
	if s.Status.IsTerminal() {
		return ErrSessionTerminal
	}
	s.Status = status
	s.FinishedAt = &at
	s.EndReason = &reason
	return nil
}

// CheckInvariants verifies the item log and the derived counters.
func (s *AssessmentSession) CheckInvariants() error {
	answered, correct := 0, 0
	for i, item := range s.Items {
		if item.QuestionNumber != i+1 {
			return fmt.Errorf("%w: item %d has number %d", ErrItemNumberMismatch, i, item.QuestionNumber)
		}
		if !item.IsAnswered() {
			if i != len(s.Items)-1 {
				return fmt.Errorf("unanswered item %d is not the last item", item.QuestionNumber)
			}
			continue
		}
		answered++
		if item.IsCorrect != nil && *item.IsCorrect {
			correct++
		}
	}
	if answered != s.AnsweredQuestions || correct != s.CorrectAnswers || len(s.Items) != s.TotalQuestions {
		return fmt.Errorf("session counters out of sync: answered=%d/%d correct=%d/%d total=%d/%d",
			s.AnsweredQuestions, answered, s.CorrectAnswers, correct, s.TotalQuestions, len(s.Items))
	}
	if s.EstimatedAbility < 0 || s.EstimatedAbility > 1 {
		return fmt.Errorf("estimated ability %f out of range", s.EstimatedAbility)
	}
	return nil
}
