package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/cache"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/events"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

// ShouldContinue applies the termination policy to a session that has just
// recorded an answer. When it returns false, reason is the end reason.
func ShouldContinue(session *models.AssessmentSession) (bool, string) {
	p := session.AdaptiveParameters
	answered := session.AnsweredQuestions

	if answered < p.MinQuestions {
		return true, ""
	}
	if answered >= p.MaxQuestions {
		return false, models.EndReasonMaxQuestions
	}
	if session.SessionType == models.SessionTypeAdaptive {
		if models.ConfidenceFor(answered) < p.ConfidenceThreshold {
			return true, ""
		}
		return false, models.EndReasonConfidenceReached
	}
	return true, ""
}

// advance either appends the next item or completes the session. It returns
// the newly presented question, if any.
func (s *sessionService) advance(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession, now time.Time) (*models.Question, error) {
	more, reason := ShouldContinue(session)
	if !more {
		return nil, session.Finish(models.SessionCompleted, reason, now)
	}

	next, err := s.selectorFor(session).Select(ctx, tx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to select next question: %w", err)
	}
	if next == nil {
		s.logger.Info("Question pool exhausted, completing session",
			"session_id", session.ID,
			"answered", session.AnsweredQuestions)
		return nil, session.Finish(models.SessionCompleted, models.EndReasonNoQuestions, now)
	}

	if err := session.AppendItem(newSessionItem(next, now)); err != nil {
		return nil, fmt.Errorf("failed to append question: %w", err)
	}
	return next, nil
}

func (s *sessionService) resolveParameters(req *StartSessionRequest) models.AdaptiveParameters {
	params := s.cfg.Defaults
	if req.MaxQuestions != nil {
		params.MaxQuestions = *req.MaxQuestions
	}

	overrides := req.AdaptiveParameters
	if overrides == nil {
		overrides = &AdaptiveParametersRequest{}
	}
	if overrides.InitialDifficulty != nil {
		params.InitialDifficulty = *overrides.InitialDifficulty
	}
	if overrides.MaxQuestions != nil {
		params.MaxQuestions = *overrides.MaxQuestions
	}
	if overrides.MinQuestions != nil {
		params.MinQuestions = *overrides.MinQuestions
	}
	if overrides.ConfidenceThreshold != nil {
		params.ConfidenceThreshold = *overrides.ConfidenceThreshold
	}
	// a short session only shrinks the default minimum; an explicit one is validated
	if overrides.MinQuestions == nil && params.MinQuestions > params.MaxQuestions {
		params.MinQuestions = params.MaxQuestions
	}
	return params
}

func (s *sessionService) acquire(ctx context.Context, sessionID uint) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, ErrSessionBusy
		}
		// Redis trouble degrades to version checks only
		s.logger.Warn("Session lock unavailable", "session_id", sessionID, "error", err)
		return func() {}, nil
	}
	return release, nil
}

func (s *sessionService) loadOwnedSession(ctx context.Context, tx *gorm.DB, sessionID uint, studentID, action string) (*models.AssessmentSession, error) {
	session, err := s.repo.Session().GetByID(ctx, tx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.StudentID != studentID {
		return nil, NewPermissionError(studentID, sessionID, "session", action, "not owned by student")
	}
	return session, nil
}

// replay rebuilds the response for an item that was already answered.
func (s *sessionService) replay(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession, item *models.SessionItem) (*SubmitAnswerResponse, error) {
	question, err := s.repo.Question().GetByID(ctx, tx, item.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	raw := RawAnswer{Index: item.AnswerIndex, Text: item.AnswerText}
	result := s.answers.Validate(question, raw)

	resp := &SubmitAnswerResponse{
		Result:     result,
		Feedback:   s.answers.GetFeedback(question, raw, result),
		Session:    session,
		IsComplete: session.Status.IsTerminal(),
		Replayed:   true,
	}
	if current := session.CurrentItem(); current != nil {
		next, err := s.repo.Question().GetByID(ctx, tx, current.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get current question: %w", err)
		}
		resp.NextQuestion = toQuestionView(next, current)
	}
	return resp, nil
}

func (s *sessionService) finishAndSave(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession, status models.SessionStatus, reason string, at time.Time) error {
	if err := session.Finish(status, reason, at); err != nil {
		return fmt.Errorf("failed to finish session %d: %w", session.ID, err)
	}
	if err := s.repo.Session().Save(ctx, tx, session); err != nil {
		return fmt.Errorf("failed to save session %d: %w", session.ID, err)
	}
	return nil
}

func (s *sessionService) buildSessionResponse(ctx context.Context, session *models.AssessmentSession) (*SessionResponse, error) {
	resp := &SessionResponse{Session: session}

	current := session.CurrentItem()
	if current == nil || session.Status != models.SessionActive {
		return resp, nil
	}

	question, err := s.repo.Question().GetByID(ctx, nil, current.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Warn("Current question no longer exists",
				"session_id", session.ID,
				"question_id", current.QuestionID)
			return resp, nil
		}
		return nil, fmt.Errorf("failed to get current question: %w", err)
	}
	resp.CurrentQuestion = toQuestionView(question, current)
	return resp, nil
}

// mapTxError passes service errors through and hides everything else behind
// a logged internal error.
func (s *sessionService) mapTxError(err error, op string, args ...any) error {
	if repositories.IsVersionConflict(err) {
		return ErrSessionBusy
	}

	var serviceError *ServiceError
	var permissionError *PermissionError
	var validationErrors ValidationErrors
	if errors.As(err, &serviceError) || errors.As(err, &permissionError) || errors.As(err, &validationErrors) {
		return err
	}

	s.logger.Error("Failed to "+op, append(args, "error", err)...)
	return fmt.Errorf("failed to %s: %w", op, err)
}

// publish delivers a hook event. Delivery failures never fail the caller.
func (s *sessionService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}

func newSessionItem(q *models.Question, now time.Time) models.SessionItem {
	return models.SessionItem{
		QuestionID:  q.ID,
		PresentedAt: now,
		Difficulty:  q.Difficulty,
		Topic:       q.TopicID,
	}
}

// toQuestionView strips the answer key from a question.
func toQuestionView(q *models.Question, item *models.SessionItem) *QuestionView {
	if q == nil {
		return nil
	}
	view := &QuestionView{
		ID:         q.ID,
		Type:       q.Type,
		Text:       q.Text,
		Difficulty: q.Difficulty,
		TopicID:    q.TopicID,
		ChapterID:  q.ChapterID,
	}
	if q.Type == models.QuestionMCQ {
		view.Choices = append([]string(nil), q.Choices...)
	}
	if item != nil {
		view.QuestionNumber = item.QuestionNumber
		view.PresentedAt = item.PresentedAt
	}
	return view
}

func submitOutcome(resp *SubmitAnswerResponse, err error) string {
	switch {
	case err != nil:
		return KindOf(err).String()
	case resp.Replayed:
		return "replayed"
	case resp.IsComplete:
		return "completed"
	default:
		return "continued"
	}
}
