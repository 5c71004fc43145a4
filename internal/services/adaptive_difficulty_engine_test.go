package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

func newTestEngine(repo *fakeRepository) *AdaptiveDifficultyEngine {
	engine := NewAdaptiveDifficultyEngine(repo, testLogger())
	// keep selection order
	engine.intn = func(n int) int { return n - 1 }
	return engine
}

func TestAdaptiveDifficultyEngine_TargetDifficulty(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	engine := newTestEngine(repo)

	t.Run("DefaultWithoutHistory", func(t *testing.T) {
		target, err := engine.TargetDifficulty(ctx, nil, "s1", "algebra")
		require.NoError(t, err)
		assert.Equal(t, models.DefaultTopicDifficulty, target)
	})

	t.Run("AppliesStreakNudge", func(t *testing.T) {
		require.NoError(t, repo.topics.Save(ctx, nil, &models.TopicPerformance{
			StudentID:            "s1",
			TopicID:              "algebra",
			CurrentDifficulty:    0.6,
			ConsecutiveSuccesses: 3,
		}))
		target, err := engine.TargetDifficulty(ctx, nil, "s1", "algebra")
		require.NoError(t, err)
		assert.Equal(t, 0.7, target)
	})
}

func TestAdaptiveDifficultyEngine_GetNextQuestion(t *testing.T) {
	ctx := context.Background()

	t.Run("ClosestInWindow", func(t *testing.T) {
		repo := newFakeRepository()
		repo.question.add(
			mcqQuestion(1, "ch1", "algebra", 0.3),
			mcqQuestion(2, "ch1", "algebra", 0.45),
			mcqQuestion(3, "ch1", "algebra", 0.6),
			mcqQuestion(4, "ch1", "algebra", 0.9),
		)
		engine := newTestEngine(repo)

		q, err := engine.GetNextQuestion(ctx, nil, "s1", "algebra", nil)
		require.NoError(t, err)
		require.NotNil(t, q)
		assert.Equal(t, uint(2), q.ID)

		criteria := repo.question.queries[0]
		assert.Equal(t, repositories.OrderByUsageThenSuccess, criteria.OrderBy)
		assert.Equal(t, candidateLimit, criteria.Limit)
		require.NotNil(t, criteria.MinDifficulty)
		require.NotNil(t, criteria.MaxDifficulty)
		assert.InDelta(t, 0.3, *criteria.MinDifficulty, 1e-9)
		assert.InDelta(t, 0.7, *criteria.MaxDifficulty, 1e-9)
	})

	t.Run("RespectsExclusions", func(t *testing.T) {
		repo := newFakeRepository()
		repo.question.add(
			mcqQuestion(1, "ch1", "algebra", 0.5),
			mcqQuestion(2, "ch1", "algebra", 0.4),
		)
		engine := newTestEngine(repo)

		q, err := engine.GetNextQuestion(ctx, nil, "s1", "algebra", []uint{1})
		require.NoError(t, err)
		require.NotNil(t, q)
		assert.Equal(t, uint(2), q.ID)
	})

	t.Run("FallsBackOutsideWindow", func(t *testing.T) {
		repo := newFakeRepository()
		repo.question.add(
			mcqQuestion(7, "ch1", "algebra", 0.95),
			mcqQuestion(8, "ch1", "algebra", 0.05),
		)
		repo.question.byID[7].UsageCount = 4
		engine := newTestEngine(repo)

		q, err := engine.GetNextQuestion(ctx, nil, "s1", "algebra", nil)
		require.NoError(t, err)
		require.NotNil(t, q)
		// least used wins once the window is dropped
		assert.Equal(t, uint(8), q.ID)

		require.Len(t, repo.question.queries, 2)
		fallback := repo.question.queries[1]
		assert.Nil(t, fallback.MinDifficulty)
		assert.Equal(t, repositories.OrderByUsage, fallback.OrderBy)
		assert.Equal(t, 1, fallback.Limit)
	})

	t.Run("ExhaustedTopic", func(t *testing.T) {
		repo := newFakeRepository()
		repo.question.add(mcqQuestion(1, "ch1", "algebra", 0.5))
		engine := newTestEngine(repo)

		q, err := engine.GetNextQuestion(ctx, nil, "s1", "algebra", []uint{1})
		require.NoError(t, err)
		assert.Nil(t, q)
	})

	t.Run("SkipsInactiveQuestions", func(t *testing.T) {
		repo := newFakeRepository()
		inactive := mcqQuestion(1, "ch1", "algebra", 0.5)
		inactive.IsActive = false
		repo.question.add(inactive)
		engine := newTestEngine(repo)

		q, err := engine.GetNextQuestion(ctx, nil, "s1", "algebra", nil)
		require.NoError(t, err)
		assert.Nil(t, q)
	})
}

func TestAdaptiveDifficultyEngine_GetAdaptiveQuestionsForTopic(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	seedTopic(repo, 1, "ch1", "algebra", 3, 0.5)
	engine := newTestEngine(repo)

	t.Run("DistinctQuestions", func(t *testing.T) {
		questions, err := engine.GetAdaptiveQuestionsForTopic(ctx, nil, "s1", "algebra", 2, nil)
		require.NoError(t, err)
		require.Len(t, questions, 2)
		assert.NotEqual(t, questions[0].ID, questions[1].ID)
	})

	t.Run("StopsWhenTopicRunsOut", func(t *testing.T) {
		questions, err := engine.GetAdaptiveQuestionsForTopic(ctx, nil, "s1", "algebra", 10, []uint{1})
		require.NoError(t, err)
		assert.Len(t, questions, 2)
	})

	t.Run("ShuffleUsesInjectedSource", func(t *testing.T) {
		shuffled := newTestEngine(repo)
		shuffled.intn = func(int) int { return 0 }

		questions, err := shuffled.GetAdaptiveQuestionsForTopic(ctx, nil, "s1", "algebra", 3, nil)
		require.NoError(t, err)
		require.Len(t, questions, 3)
		// selection order 1,2,3 rotated by always swapping with the head
		assert.Equal(t, []uint{2, 3, 1}, []uint{questions[0].ID, questions[1].ID, questions[2].ID})
	})
}

func TestAdaptiveDifficultyEngine_GetAdaptiveQuestionsForChapter(t *testing.T) {
	ctx := context.Background()

	countByTopic := func(questions []*models.Question) map[string]int {
		counts := map[string]int{}
		for _, q := range questions {
			counts[q.TopicID]++
		}
		return counts
	}

	t.Run("QuotaPerTopic", func(t *testing.T) {
		repo := newFakeRepository()
		seedTopic(repo, 1, "ch1", "a", 3, 0.5)
		seedTopic(repo, 10, "ch1", "b", 3, 0.5)
		seedTopic(repo, 20, "ch1", "c", 3, 0.5)
		engine := newTestEngine(repo)

		questions, err := engine.GetAdaptiveQuestionsForChapter(ctx, nil, "s1", "ch1", nil, 4, nil)
		require.NoError(t, err)
		require.Len(t, questions, 4)
		assert.Equal(t, map[string]int{"a": 2, "b": 1, "c": 1}, countByTopic(questions))
	})

	t.Run("ExhaustedTopicIsSkipped", func(t *testing.T) {
		repo := newFakeRepository()
		seedTopic(repo, 1, "ch1", "a", 3, 0.5)
		seedTopic(repo, 10, "ch1", "b", 1, 0.5)
		seedTopic(repo, 20, "ch1", "c", 3, 0.5)
		engine := newTestEngine(repo)

		questions, err := engine.GetAdaptiveQuestionsForChapter(ctx, nil, "s1", "ch1", nil, 5, nil)
		require.NoError(t, err)
		require.Len(t, questions, 5)
		assert.Equal(t, map[string]int{"a": 2, "b": 1, "c": 2}, countByTopic(questions))
	})

	t.Run("FiltersByGrade", func(t *testing.T) {
		repo := newFakeRepository()
		graded := mcqQuestion(1, "ch1", "a", 0.5)
		graded.Grade = intPtr(7)
		other := mcqQuestion(2, "ch1", "b", 0.5)
		other.Grade = intPtr(8)
		repo.question.add(graded, other)
		engine := newTestEngine(repo)

		questions, err := engine.GetAdaptiveQuestionsForChapter(ctx, nil, "s1", "ch1", intPtr(7), 5, nil)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, uint(1), questions[0].ID)
	})

	t.Run("EmptyChapter", func(t *testing.T) {
		engine := newTestEngine(newFakeRepository())
		questions, err := engine.GetAdaptiveQuestionsForChapter(ctx, nil, "s1", "missing", nil, 3, nil)
		require.NoError(t, err)
		assert.Empty(t, questions)
	})

	t.Run("NonPositiveCount", func(t *testing.T) {
		repo := newFakeRepository()
		seedTopic(repo, 1, "ch1", "a", 3, 0.5)
		questions, err := newTestEngine(repo).GetAdaptiveQuestionsForChapter(ctx, nil, "s1", "ch1", nil, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, questions)
	})
}

func TestAdaptiveDifficultyEngine_GetNextQuestionForChapter(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		presented map[string]int
		exclude   []uint
		want      string
	}{
		{"FirstTopicOnEmptySession", nil, nil, "a"},
		{"LeastPresentedTopic", map[string]int{"a": 2, "b": 1, "c": 2}, nil, "b"},
		{"TiesKeepListOrder", map[string]int{"a": 1, "b": 1, "c": 1}, nil, "a"},
		{"SkipsExhaustedTopic", map[string]int{"a": 2, "b": 2}, []uint{20, 21}, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			seedTopic(repo, 1, "ch1", "a", 3, 0.5)
			seedTopic(repo, 10, "ch1", "b", 3, 0.5)
			seedTopic(repo, 20, "ch1", "c", 2, 0.5)

			q, err := newTestEngine(repo).GetNextQuestionForChapter(ctx, nil, "s1", "ch1", nil, tt.presented, tt.exclude)
			require.NoError(t, err)
			require.NotNil(t, q)
			assert.Equal(t, tt.want, q.TopicID)
		})
	}

	t.Run("ChapterExhausted", func(t *testing.T) {
		repo := newFakeRepository()
		seedTopic(repo, 1, "ch1", "a", 1, 0.5)
		q, err := newTestEngine(repo).GetNextQuestionForChapter(ctx, nil, "s1", "ch1", nil, nil, []uint{1})
		require.NoError(t, err)
		assert.Nil(t, q)
	})
}
