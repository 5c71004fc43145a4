package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// Repository aggregates the engine's repositories
type Repository interface {
	Session() SessionRepository
	Question() QuestionRepository
	TopicPerformance() TopicPerformanceRepository

	// User domain (read-only, backed by Casdoor)
	User() UserRepository

	// WithTransaction runs fn in one database transaction. Repository methods
	// accept the tx handle; a nil tx means the default connection.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// SessionRepository persists the session aggregate together with its items.
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentSession, error)
	GetActiveByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*models.AssessmentSession, error)
	ListActiveByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.AssessmentSession, error)
	List(ctx context.Context, tx *gorm.DB, filters SessionFilters) ([]*models.AssessmentSession, int64, error)

	// Save writes the session under a version check and upserts its items.
	// It returns ErrVersionConflict when another writer got there first.
	Save(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error

	CountCompletedByStudent(ctx context.Context, tx *gorm.DB, studentID string) (int64, error)
	GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string) (*StudentSessionStats, error)
}

// QuestionRepository is the engine's read-mostly view of the question bank.
type QuestionRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	FindCandidates(ctx context.Context, tx *gorm.DB, criteria QuestionCriteria) ([]*models.Question, error)
	ListTopicsByChapter(ctx context.Context, tx *gorm.DB, chapterID string, grade *int) ([]string, error)
	// RecordUsage folds one answered presentation into the question's
	// statistics with a single atomic update.
	RecordUsage(ctx context.Context, tx *gorm.DB, questionID uint, isCorrect bool, responseTimeMs int64) error
	// InvalidateCache drops the cached copy of a question. Call it once the
	// transaction that changed the question has committed.
	InvalidateCache(ctx context.Context, questionID uint)
}

type TopicPerformanceRepository interface {
	// Get returns a not-found error when the student has never attempted the topic.
	Get(ctx context.Context, tx *gorm.DB, studentID, topicID string) (*models.TopicPerformance, error)
	// GetForUpdate is Get with a row lock when tx is a transaction.
	GetForUpdate(ctx context.Context, tx *gorm.DB, studentID, topicID string) (*models.TopicPerformance, error)
	Save(ctx context.Context, tx *gorm.DB, record *models.TopicPerformance) error
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.TopicPerformance, error)
	ListByStudentAndTopics(ctx context.Context, tx *gorm.DB, studentID string, topicIDs []string) ([]*models.TopicPerformance, error)
}
