package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and logs instead of failing
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and logs instead of failing
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

func QuestionKey(id uint) string {
	return fmt.Sprintf("id:%d", id)
}

func ChapterTopicsKey(chapterID string, grade *int) string {
	if grade == nil {
		return fmt.Sprintf("chapter:%s:all", chapterID)
	}
	return fmt.Sprintf("chapter:%s:grade:%d", chapterID, *grade)
}

// InvalidateQuestionCache drops the cached copy of one question
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint) {
	SafeDelete(ctx, cm.Question, QuestionKey(questionID))
}

// FlushQuestionCaches drops every cached question and chapter topic list,
// e.g. after the question bank was reloaded outside the service.
func FlushQuestionCaches(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Question, "*")
	SafeInvalidatePattern(ctx, cm.Topic, "*")
}
