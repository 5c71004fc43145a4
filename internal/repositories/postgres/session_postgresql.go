package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

type SessionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// Create inserts the session together with its initial items
func (s *SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	if err := session.CheckInvariants(); err != nil {
		return fmt.Errorf("refusing to create inconsistent session: %w", err)
	}
	if session.Version == 0 {
		session.Version = 1
	}

	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("active session for student %s: %w", session.StudentID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session with its items in question order
func (s *SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentSession, error) {
	db := s.getDB(tx)
	var session models.AssessmentSession
	if err := s.withItems(db.WithContext(ctx)).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetActiveByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*models.AssessmentSession, error) {
	db := s.getDB(tx)
	var session models.AssessmentSession
	err := s.withItems(db.WithContext(ctx)).
		Where("student_id = ? AND status = ?", studentID, models.SessionActive).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("active session for student %s: %w", studentID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return &session, nil
}

// ListActiveByStudent locks the rows when called inside a transaction
func (s *SessionPostgreSQL) ListActiveByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.AssessmentSession, error) {
	db := s.getDB(tx).WithContext(ctx)
	if tx != nil {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var sessions []*models.AssessmentSession
	err := s.withItems(db).
		Where("student_id = ? AND status = ?", studentID, models.SessionActive).
		Order("started_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return sessions, nil
}

// List returns sessions without items
func (s *SessionPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	db := s.getDB(tx)
	query := s.helpers.ApplySessionFilters(db.WithContext(ctx).Model(&models.AssessmentSession{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	var sessions []*models.AssessmentSession
	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, total, nil
}

// Save writes the session row guarded by its version and upserts the items
// that can still change: the last two.
func (s *SessionPostgreSQL) Save(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	if err := session.CheckInvariants(); err != nil {
		return fmt.Errorf("refusing to save inconsistent session %d: %w", session.ID, err)
	}

	write := func(db *gorm.DB) error {
		expected := session.Version
		session.Version = expected + 1

		result := db.Model(&models.AssessmentSession{}).
			Where("id = ? AND version = ?", session.ID, expected).
			Select("*").
			Omit("id", "created_at", clause.Associations).
			Updates(session)
		if result.Error != nil {
			session.Version = expected
			return fmt.Errorf("failed to update session: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			session.Version = expected
			return fmt.Errorf("session %d at version %d: %w", session.ID, expected, repositories.ErrVersionConflict)
		}

		start := len(session.Items) - 2
		if start < 0 {
			start = 0
		}
		for i := start; i < len(session.Items); i++ {
			item := &session.Items[i]
			item.SessionID = session.ID
			if err := db.Save(item).Error; err != nil {
				return fmt.Errorf("failed to save session item %d: %w", item.QuestionNumber, err)
			}
		}
		return nil
	}

	if tx != nil {
		return write(tx.WithContext(ctx))
	}
	return s.db.WithContext(ctx).Transaction(write)
}

func (s *SessionPostgreSQL) CountCompletedByStudent(ctx context.Context, tx *gorm.DB, studentID string) (int64, error) {
	count, err := s.helpers.CountSessionsByStatus(ctx, s.getDB(tx), studentID, models.SessionCompleted)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed sessions: %w", err)
	}
	return count, nil
}

func (s *SessionPostgreSQL) GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string) (*repositories.StudentSessionStats, error) {
	db := s.getDB(tx)
	var stats repositories.StudentSessionStats
	err := db.WithContext(ctx).
		Model(&models.AssessmentSession{}).
		Select(`COUNT(*) AS total_sessions,
			COUNT(*) FILTER (WHERE status = ?) AS completed_sessions,
			COUNT(*) FILTER (WHERE status = ?) AS abandoned_sessions,
			COALESCE(AVG(estimated_ability) FILTER (WHERE status = ?), 0) AS average_ability`,
			models.SessionCompleted, models.SessionAbandoned, models.SessionCompleted).
		Where("student_id = ?", studentID).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get student stats: %w", err)
	}
	return &stats, nil
}

func (s *SessionPostgreSQL) withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("question_number ASC")
	})
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (s *SessionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
