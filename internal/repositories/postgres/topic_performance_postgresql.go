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

type TopicPerformancePostgreSQL struct {
	db *gorm.DB
}

func NewTopicPerformancePostgreSQL(db *gorm.DB) repositories.TopicPerformanceRepository {
	return &TopicPerformancePostgreSQL{db: db}
}

func (t *TopicPerformancePostgreSQL) Get(ctx context.Context, tx *gorm.DB, studentID, topicID string) (*models.TopicPerformance, error) {
	return t.get(t.getDB(tx).WithContext(ctx), studentID, topicID)
}

func (t *TopicPerformancePostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, studentID, topicID string) (*models.TopicPerformance, error) {
	db := t.getDB(tx).WithContext(ctx)
	if tx != nil {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.get(db, studentID, topicID)
}

func (t *TopicPerformancePostgreSQL) get(db *gorm.DB, studentID, topicID string) (*models.TopicPerformance, error) {
	var record models.TopicPerformance
	err := db.Where("student_id = ? AND topic_id = ?", studentID, topicID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("topic performance %s/%s: %w", studentID, topicID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get topic performance: %w", err)
	}
	return &record, nil
}

// Save inserts a new record or updates every column of an existing one
func (t *TopicPerformancePostgreSQL) Save(ctx context.Context, tx *gorm.DB, record *models.TopicPerformance) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Save(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("topic performance %s/%s: %w", record.StudentID, record.TopicID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to save topic performance: %w", err)
	}
	return nil
}

func (t *TopicPerformancePostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.TopicPerformance, error) {
	db := t.getDB(tx)
	var records []*models.TopicPerformance
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("topic_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list topic performance: %w", err)
	}
	return records, nil
}

func (t *TopicPerformancePostgreSQL) ListByStudentAndTopics(ctx context.Context, tx *gorm.DB, studentID string, topicIDs []string) ([]*models.TopicPerformance, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}

	db := t.getDB(tx)
	var records []*models.TopicPerformance
	err := db.WithContext(ctx).
		Where("student_id = ? AND topic_id IN ?", studentID, topicIDs).
		Order("topic_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list topic performance: %w", err)
	}
	return records, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (t *TopicPerformancePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}
