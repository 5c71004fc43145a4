package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/metrics"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

const (
	difficultyWindow = 0.2
	candidateLimit   = 10
)

// AdaptiveDifficultyEngine picks questions near a student's current topic
// difficulty.
type AdaptiveDifficultyEngine struct {
	repo   repositories.Repository
	logger *slog.Logger

	// intn backs the batch shuffle
	intn func(n int) int
}

func NewAdaptiveDifficultyEngine(repo repositories.Repository, logger *slog.Logger) *AdaptiveDifficultyEngine {
	return &AdaptiveDifficultyEngine{
		repo:   repo,
		logger: logger,
		intn:   rand.Intn,
	}
}

// TargetDifficulty is the difficulty the next question for the topic should
// sit at, including the streak nudge.
func (e *AdaptiveDifficultyEngine) TargetDifficulty(ctx context.Context, tx *gorm.DB, studentID, topicID string) (float64, error) {
	record, err := e.repo.TopicPerformance().Get(ctx, tx, studentID, topicID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return models.DefaultTopicDifficulty, nil
		}
		return 0, fmt.Errorf("failed to load topic performance: %w", err)
	}
	return RatchetDifficulty(record.CurrentDifficulty, record.ConsecutiveSuccesses, record.ConsecutiveFailures), nil
}

// GetNextQuestion returns the best question for the topic, or nil when every
// active question in the topic is excluded.
func (e *AdaptiveDifficultyEngine) GetNextQuestion(ctx context.Context, tx *gorm.DB, studentID, topicID string, excludeIDs []uint) (*models.Question, error) {
	target, err := e.TargetDifficulty(ctx, tx, studentID, topicID)
	if err != nil {
		return nil, err
	}

	low, high := target-difficultyWindow, target+difficultyWindow
	candidates, err := e.repo.Question().FindCandidates(ctx, tx, repositories.QuestionCriteria{
		TopicID:       topicID,
		MinDifficulty: &low,
		MaxDifficulty: &high,
		ExcludeIDs:    excludeIDs,
		OrderBy:       repositories.OrderByUsageThenSuccess,
		Limit:         candidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate questions: %w", err)
	}
	if best := closestTo(candidates, target); best != nil {
		return best, nil
	}

	metrics.SelectionFallbacks.Inc()
	e.logger.Debug("No question in difficulty window, relaxing",
		"student_id", studentID,
		"topic_id", topicID,
		"target", target)

	fallback, err := e.repo.Question().FindCandidates(ctx, tx, repositories.QuestionCriteria{
		TopicID:    topicID,
		ExcludeIDs: excludeIDs,
		OrderBy:    repositories.OrderByUsage,
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find fallback question: %w", err)
	}
	if len(fallback) == 0 {
		return nil, nil
	}
	return fallback[0], nil
}

// GetNextQuestionForChapter serves the chapter topic presented least often so
// far, taking topics in list order on ties and skipping exhausted ones.
func (e *AdaptiveDifficultyEngine) GetNextQuestionForChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string, grade *int, presented map[string]int, excludeIDs []uint) (*models.Question, error) {
	topics, err := e.repo.Question().ListTopicsByChapter(ctx, tx, chapterID, grade)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapter topics: %w", err)
	}

	slices.SortStableFunc(topics, func(a, b string) int {
		return cmp.Compare(presented[a], presented[b])
	})
	for _, topic := range topics {
		q, err := e.GetNextQuestion(ctx, tx, studentID, topic, excludeIDs)
		if err != nil {
			return nil, err
		}
		if q != nil {
			return q, nil
		}
	}
	return nil, nil
}

// GetAdaptiveQuestionsForTopic selects up to count questions for one topic
// and returns them shuffled.
func (e *AdaptiveDifficultyEngine) GetAdaptiveQuestionsForTopic(ctx context.Context, tx *gorm.DB, studentID, topicID string, count int, excludeIDs []uint) ([]*models.Question, error) {
	exclude := append([]uint(nil), excludeIDs...)
	selected := make([]*models.Question, 0, count)

	for len(selected) < count {
		q, err := e.GetNextQuestion(ctx, tx, studentID, topicID, exclude)
		if err != nil {
			return nil, err
		}
		if q == nil {
			break
		}
		selected = append(selected, q)
		exclude = append(exclude, q.ID)
	}

	return e.shuffleAndTruncate(selected, count), nil
}

// GetAdaptiveQuestionsForChapter rotates over the chapter's topics, taking at
// most ceil(count/topics) from each, then shuffles the result.
func (e *AdaptiveDifficultyEngine) GetAdaptiveQuestionsForChapter(ctx context.Context, tx *gorm.DB, studentID, chapterID string, grade *int, count int, excludeIDs []uint) ([]*models.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	topics, err := e.repo.Question().ListTopicsByChapter(ctx, tx, chapterID, grade)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapter topics: %w", err)
	}
	if len(topics) == 0 {
		return nil, nil
	}

	quota := (count + len(topics) - 1) / len(topics)
	taken := make(map[string]int, len(topics))
	exhausted := make(map[string]bool, len(topics))
	exclude := append([]uint(nil), excludeIDs...)
	selected := make([]*models.Question, 0, count)

	for len(selected) < count && len(exhausted) < len(topics) {
		progressed := false
		for _, topic := range topics {
			if len(selected) >= count {
				break
			}
			if exhausted[topic] || taken[topic] >= quota {
				continue
			}
			q, err := e.GetNextQuestion(ctx, tx, studentID, topic, exclude)
			if err != nil {
				return nil, err
			}
			if q == nil {
				exhausted[topic] = true
				continue
			}
			selected = append(selected, q)
			exclude = append(exclude, q.ID)
			taken[topic]++
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return e.shuffleAndTruncate(selected, count), nil
}

func (e *AdaptiveDifficultyEngine) shuffleAndTruncate(questions []*models.Question, count int) []*models.Question {
	for i := len(questions) - 1; i > 0; i-- {
		j := e.intn(i + 1)
		questions[i], questions[j] = questions[j], questions[i]
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions
}

// closestTo returns the first candidate with the smallest distance to target.
func closestTo(candidates []*models.Question, target float64) *models.Question {
	var best *models.Question
	bestDistance := math.Inf(1)
	for _, q := range candidates {
		if d := math.Abs(q.Difficulty - target); d < bestDistance {
			best, bestDistance = q, d
		}
	}
	return best
}
