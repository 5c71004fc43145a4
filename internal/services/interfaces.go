package services

import (
	"context"
	"time"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/validator"
)

// Use business validator types
type StartSessionRequest = validator.StartSessionRequest
type SubmitAnswerRequest = validator.SubmitAnswerRequest
type AdaptiveParametersRequest = validator.AdaptiveParametersRequest

// QuestionView is what a student sees; it never carries the answer key.
type QuestionView struct {
	ID             uint                `json:"id"`
	QuestionNumber int                 `json:"question_number"`
	Type           models.QuestionType `json:"question_type"`
	Text           string              `json:"text"`
	Choices        []string            `json:"choices,omitempty"`
	Difficulty     float64             `json:"difficulty"`
	TopicID        string              `json:"topic_id"`
	ChapterID      string              `json:"chapter_id"`
	PresentedAt    time.Time           `json:"presented_at"`
}

type ValidationResult struct {
	IsValid        bool   `json:"is_valid"`
	IsCorrect      bool   `json:"is_correct"`
	Error          string `json:"error,omitempty"`
	CorrectAnswer  string `json:"correct_answer"`
	SelectedAnswer string `json:"selected_answer"`

	// set when the question itself, not the answer, is unusable
	questionDefect bool
}

type Feedback struct {
	IsCorrect      bool    `json:"is_correct"`
	CorrectAnswer  string  `json:"correct_answer"`
	SelectedAnswer string  `json:"selected_answer"`
	Explanation    *string `json:"explanation,omitempty"`
	Message        string  `json:"message"`
}

type StartSessionResponse struct {
	Session  *models.AssessmentSession `json:"session"`
	Question *QuestionView             `json:"question"`
}

type SubmitAnswerResponse struct {
	Result       ValidationResult          `json:"result"`
	Feedback     Feedback                  `json:"feedback"`
	Session      *models.AssessmentSession `json:"session"`
	NextQuestion *QuestionView             `json:"next_question,omitempty"`
	IsComplete   bool                      `json:"is_complete"`
	Replayed     bool                      `json:"replayed,omitempty"`
}

type SessionResponse struct {
	Session         *models.AssessmentSession `json:"session"`
	CurrentQuestion *QuestionView             `json:"current_question,omitempty"`
}

type SessionListResponse struct {
	Sessions []*models.AssessmentSession `json:"sessions"`
	Total    int64                       `json:"total"`
	Limit    int                         `json:"limit"`
	Offset   int                         `json:"offset"`
}

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ===== SERVICE INTERFACES =====

type SessionService interface {
	Start(ctx context.Context, studentID string, req *StartSessionRequest) (*StartSessionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID uint, studentID string, req *SubmitAnswerRequest) (*SubmitAnswerResponse, error)

	// GetActive returns nil without error when the student has no active session.
	GetActive(ctx context.Context, studentID string) (*SessionResponse, error)
	GetSession(ctx context.Context, sessionID uint, requesterID string, requesterRole models.UserRole) (*SessionResponse, error)
	List(ctx context.Context, studentID string, filters repositories.SessionFilters) (*SessionListResponse, error)
	GetStats(ctx context.Context, studentID string) (*repositories.StudentSessionStats, error)

	Abandon(ctx context.Context, studentID string) (*models.AssessmentSession, error)
	CleanupStaleSessions(ctx context.Context, studentID string) (int, error)
}

type TopicPerformanceService interface {
	Get(ctx context.Context, studentID, topicID string) (*models.TopicPerformance, error)
	ListForStudent(ctx context.Context, studentID string) ([]*models.TopicPerformance, error)
	Reset(ctx context.Context, studentID, topicID string) (*models.TopicPerformance, error)
}

type ExportService interface {
	ExportSession(ctx context.Context, sessionID uint, requesterID string, requesterRole models.UserRole) (*ExportFile, error)
}

type ServiceManager interface {
	Session() SessionService
	TopicPerformance() TopicPerformanceService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
