package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

type topicPerformanceService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewTopicPerformanceService(repo repositories.Repository, logger *slog.Logger) TopicPerformanceService {
	return &topicPerformanceService{
		repo:   repo,
		logger: logger,
	}
}

func (s *topicPerformanceService) Get(ctx context.Context, studentID, topicID string) (*models.TopicPerformance, error) {
	record, err := s.repo.TopicPerformance().Get(ctx, nil, studentID, topicID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTopicPerformanceNotFound
		}
		return nil, fmt.Errorf("failed to get topic performance: %w", err)
	}
	return record, nil
}

func (s *topicPerformanceService) ListForStudent(ctx context.Context, studentID string) ([]*models.TopicPerformance, error) {
	records, err := s.repo.TopicPerformance().ListByStudent(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topic performance: %w", err)
	}
	return records, nil
}

// Reset restores the record to its first-attempt state. Records are never
// deleted.
func (s *topicPerformanceService) Reset(ctx context.Context, studentID, topicID string) (*models.TopicPerformance, error) {
	s.logger.Info("Resetting topic performance",
		"student_id", studentID,
		"topic_id", topicID)

	var record *models.TopicPerformance
	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		record, err = s.repo.TopicPerformance().GetForUpdate(ctx, tx, studentID, topicID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTopicPerformanceNotFound
			}
			return fmt.Errorf("failed to get topic performance: %w", err)
		}
		record.Reset()
		return s.repo.TopicPerformance().Save(ctx, tx, record)
	})
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, err
		}
		s.logger.Error("Failed to reset topic performance",
			"student_id", studentID,
			"topic_id", topicID,
			"error", err)
		return nil, fmt.Errorf("failed to reset topic performance: %w", err)
	}
	return record, nil
}
