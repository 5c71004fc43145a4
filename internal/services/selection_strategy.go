package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

// QuestionSelector chooses the next question for a session, or nil when the
// session's scope is exhausted.
type QuestionSelector interface {
	Select(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) (*models.Question, error)
}

// selectorFor resolves the strategy: fixed sessions never adapt, revision
// mode targets the weakest topic, everything else is adaptive.
func (s *sessionService) selectorFor(session *models.AssessmentSession) QuestionSelector {
	switch {
	case session.SessionType == models.SessionTypeFixed:
		return &fixedSelector{repo: s.repo}
	case session.Mode == models.ModeRevision:
		return &revisionSelector{repo: s.repo, engine: s.engine}
	default:
		return &adaptiveSelector{engine: s.engine}
	}
}

type adaptiveSelector struct {
	engine *AdaptiveDifficultyEngine
}

func (a *adaptiveSelector) Select(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) (*models.Question, error) {
	if session.TopicID != nil && *session.TopicID != "" {
		return a.engine.GetNextQuestion(ctx, tx, session.StudentID, *session.TopicID, session.UsedQuestionIDs())
	}

	return a.engine.GetNextQuestionForChapter(ctx, tx, session.StudentID, session.ChapterID, session.Grade, presentedByTopic(session), session.UsedQuestionIDs())
}

// presentedByTopic counts the session's items per topic.
func presentedByTopic(session *models.AssessmentSession) map[string]int {
	counts := make(map[string]int, len(session.Items))
	for _, item := range session.Items {
		counts[item.Topic]++
	}
	return counts
}

// fixedSelector serves the least-used questions nearest the session's
// initial difficulty. Answers never move the target.
type fixedSelector struct {
	repo repositories.Repository
}

func (f *fixedSelector) Select(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) (*models.Question, error) {
	criteria := repositories.QuestionCriteria{
		ChapterID:        session.ChapterID,
		Grade:            session.Grade,
		TargetDifficulty: session.AdaptiveParameters.InitialDifficulty,
		ExcludeIDs:       session.UsedQuestionIDs(),
		OrderBy:          repositories.OrderByDistanceToTarget,
		Limit:            1,
	}
	if session.TopicID != nil {
		criteria.TopicID = *session.TopicID
	}

	questions, err := f.repo.Question().FindCandidates(ctx, tx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to find fixed questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil
	}
	return questions[0], nil
}

// revisionSelector drills the attempted topic with the lowest average score
// and falls back to chapter-wide adaptive selection.
type revisionSelector struct {
	repo   repositories.Repository
	engine *AdaptiveDifficultyEngine
}

func (r *revisionSelector) Select(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) (*models.Question, error) {
	topic, err := r.weakestTopic(ctx, tx, session)
	if err != nil {
		return nil, err
	}
	if topic != "" {
		q, err := r.engine.GetNextQuestion(ctx, tx, session.StudentID, topic, session.UsedQuestionIDs())
		if err != nil {
			return nil, err
		}
		if q != nil {
			return q, nil
		}
	}

	return (&adaptiveSelector{engine: r.engine}).Select(ctx, tx, withoutTopic(session))
}

func (r *revisionSelector) weakestTopic(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) (string, error) {
	var topics []string
	if session.TopicID != nil && *session.TopicID != "" {
		topics = []string{*session.TopicID}
	} else {
		var err error
		topics, err = r.repo.Question().ListTopicsByChapter(ctx, tx, session.ChapterID, session.Grade)
		if err != nil {
			return "", fmt.Errorf("failed to list chapter topics: %w", err)
		}
	}
	if len(topics) == 0 {
		return "", nil
	}

	records, err := r.repo.TopicPerformance().ListByStudentAndTopics(ctx, tx, session.StudentID, topics)
	if err != nil {
		return "", fmt.Errorf("failed to load topic performance: %w", err)
	}

	var weakest *models.TopicPerformance
	for _, record := range records {
		if record.AttemptsCount == 0 {
			continue
		}
		if weakest == nil || record.AverageScore < weakest.AverageScore {
			weakest = record
		}
	}
	if weakest == nil {
		return "", nil
	}
	return weakest.TopicID, nil
}

// withoutTopic returns a shallow copy scoped to the whole chapter.
func withoutTopic(session *models.AssessmentSession) *models.AssessmentSession {
	if session.TopicID == nil {
		return session
	}
	copied := *session
	copied.TopicID = nil
	return &copied
}
