package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

const (
	ratchetStep      = models.DifficultyStep
	streakToAdjust   = 3
	masteryMinTries  = 3
	advancedMinTries = 5
	proficientTries  = 4
)

// TopicPerformanceTracker owns the per-student, per-topic mastery and
// difficulty state.
type TopicPerformanceTracker struct {
	repo   repositories.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewTopicPerformanceTracker(repo repositories.Repository, logger *slog.Logger) *TopicPerformanceTracker {
	return &TopicPerformanceTracker{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// RecordAttempt folds one answer into the student's record for the topic,
// creating the record on first attempt. Pass the caller's tx to make it part
// of a larger unit of work.
func (t *TopicPerformanceTracker) RecordAttempt(ctx context.Context, tx *gorm.DB, studentID, topicID string, isCorrect bool, responseTimeMs int64, questionDifficulty float64) (*models.TopicPerformance, error) {
	record, err := t.repo.TopicPerformance().GetForUpdate(ctx, tx, studentID, topicID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to load topic performance: %w", err)
		}
		record = &models.TopicPerformance{
			StudentID:         studentID,
			TopicID:           topicID,
			CurrentDifficulty: clampDifficulty(questionDifficulty),
			MasteryLevel:      models.MasteryBeginner,
		}
	}

	ApplyAttempt(record, isCorrect, responseTimeMs, t.now())

	if err := t.repo.TopicPerformance().Save(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("failed to save topic performance: %w", err)
	}

	t.logger.Debug("Topic performance updated",
		"student_id", studentID,
		"topic_id", topicID,
		"attempts", record.AttemptsCount,
		"difficulty", record.CurrentDifficulty,
		"mastery", record.MasteryLevel)

	return record, nil
}

// ApplyAttempt is the pure state transition behind RecordAttempt.
func ApplyAttempt(record *models.TopicPerformance, isCorrect bool, responseTimeMs int64, at time.Time) {
	record.AttemptsCount++
	record.TotalTimeSpent += responseTimeMs
	record.AverageResponseTime = float64(record.TotalTimeSpent) / float64(record.AttemptsCount)

	if isCorrect {
		record.CorrectCount++
		record.ConsecutiveSuccesses++
		record.ConsecutiveFailures = 0
	} else {
		record.ConsecutiveFailures++
		record.ConsecutiveSuccesses = 0
	}

	record.AverageScore = float64(record.CorrectCount) / float64(record.AttemptsCount)
	record.MasteryLevel = ClassifyMastery(record.AttemptsCount, record.AverageScore)
	record.CurrentDifficulty = RatchetDifficulty(record.CurrentDifficulty, record.ConsecutiveSuccesses, record.ConsecutiveFailures)
	record.LastAttemptAt = &at
}

func ClassifyMastery(attempts int, averageScore float64) models.MasteryLevel {
	switch {
	case attempts < masteryMinTries:
		return models.MasteryBeginner
	case averageScore >= 0.9 && attempts >= advancedMinTries:
		return models.MasteryAdvanced
	case averageScore >= 0.7 && attempts >= proficientTries:
		return models.MasteryProficient
	case averageScore >= 0.5 && attempts >= masteryMinTries:
		return models.MasteryDeveloping
	default:
		return models.MasteryBeginner
	}
}

// RatchetDifficulty moves difficulty one step while a streak of at least
// three lasts. It fires on every call, so a long streak saturates at a bound.
func RatchetDifficulty(current float64, successes, failures int) float64 {
	switch {
	case failures >= streakToAdjust:
		current -= ratchetStep
	case successes >= streakToAdjust:
		current += ratchetStep
	}
	return clampDifficulty(current)
}

// clampDifficulty bounds d to the topic range and rounds away float drift,
// so 0.7+0.1 lands on 0.8.
func clampDifficulty(d float64) float64 {
	d = math.Round(d*100) / 100
	return math.Max(models.MinTopicDifficulty, math.Min(models.MaxTopicDifficulty, d))
}
