package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/cache"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// GetByID retrieves a question by ID. Reads outside a transaction go through
// the cache.
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	if tx != nil {
		return q.fetch(ctx, tx, id)
	}

	var question models.Question
	err := q.cacheManager.Question.CacheOrExecute(ctx, cache.QuestionKey(id), &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		return q.fetch(ctx, q.db, id)
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) fetch(ctx context.Context, db *gorm.DB, id uint) (*models.Question, error) {
	var question models.Question
	if err := db.WithContext(ctx).First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

// FindCandidates returns active questions matching the criteria
func (q *QuestionPostgreSQL) FindCandidates(ctx context.Context, tx *gorm.DB, criteria repositories.QuestionCriteria) ([]*models.Question, error) {
	db := q.getDB(tx)
	query := db.WithContext(ctx).Model(&models.Question{}).Where("is_active = ?", true)

	if criteria.TopicID != "" {
		query = query.Where("topic_id = ?", criteria.TopicID)
	}
	if criteria.ChapterID != "" {
		query = query.Where("chapter_id = ?", criteria.ChapterID)
	}
	if criteria.Grade != nil {
		query = query.Where("grade = ?", *criteria.Grade)
	}
	if criteria.MinDifficulty != nil {
		query = query.Where("difficulty >= ?", *criteria.MinDifficulty)
	}
	if criteria.MaxDifficulty != nil {
		query = query.Where("difficulty <= ?", *criteria.MaxDifficulty)
	}
	if len(criteria.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", criteria.ExcludeIDs)
	}

	switch criteria.OrderBy {
	case repositories.OrderByUsage:
		query = query.Order("usage_count ASC").Order("id ASC")
	case repositories.OrderByDistanceToTarget:
		query = query.Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "ABS(difficulty - ?) ASC, usage_count ASC, id ASC",
				Vars:               []interface{}{criteria.TargetDifficulty},
				WithoutParentheses: true,
			},
		})
	default:
		query = query.Order("usage_count ASC").Order("success_rate DESC").Order("id ASC")
	}

	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit)
	}

	var questions []*models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidate questions: %w", err)
	}
	return questions, nil
}

// ListTopicsByChapter returns the distinct topics with active questions
func (q *QuestionPostgreSQL) ListTopicsByChapter(ctx context.Context, tx *gorm.DB, chapterID string, grade *int) ([]string, error) {
	db := q.getDB(tx)
	var topics []string

	err := q.cacheManager.Topic.CacheOrExecute(ctx, cache.ChapterTopicsKey(chapterID, grade), &topics, cache.TopicCacheConfig.TTL, func() (interface{}, error) {
		var dbTopics []string
		query := db.WithContext(ctx).
			Model(&models.Question{}).
			Where("chapter_id = ? AND is_active = ?", chapterID, true)
		if grade != nil {
			query = query.Where("grade = ?", *grade)
		}
		if err := query.Distinct("topic_id").Order("topic_id ASC").Pluck("topic_id", &dbTopics).Error; err != nil {
			return nil, fmt.Errorf("failed to list chapter topics: %w", err)
		}
		return dbTopics, nil
	})
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// RecordUsage updates the running statistics in one statement so concurrent
// sessions answering the same question do not lose updates.
func (q *QuestionPostgreSQL) RecordUsage(ctx context.Context, tx *gorm.DB, questionID uint, isCorrect bool, responseTimeMs int64) error {
	db := q.getDB(tx)
	correct := 0
	if isCorrect {
		correct = 1
	}

	result := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", questionID).
		Updates(map[string]interface{}{
			"usage_count":           gorm.Expr("usage_count + 1"),
			"correct_count":         gorm.Expr("correct_count + ?", correct),
			"success_rate":          gorm.Expr("(correct_count + ?)::float / (usage_count + 1)", correct),
			"average_response_time": gorm.Expr("(average_response_time * usage_count + ?) / (usage_count + 1)", responseTimeMs),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record question usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("question %d: %w", questionID, repositories.ErrNotFound)
	}

	// inside a transaction the caller invalidates after commit
	if tx == nil {
		q.InvalidateCache(ctx, questionID)
	}
	return nil
}

func (q *QuestionPostgreSQL) InvalidateCache(ctx context.Context, questionID uint) {
	cache.InvalidateQuestionCache(ctx, q.cacheManager, questionID)
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (q *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return q.db
}
