package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/events"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/metrics"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/validator"
)

// SessionLock serializes writers of one session. cache.SessionLocker is the
// production implementation.
type SessionLock interface {
	Acquire(ctx context.Context, sessionID uint) (func(), error)
}

type SessionServiceConfig struct {
	// Active sessions older than this are abandoned on the next start
	StaleAfter time.Duration
	Defaults   models.AdaptiveParameters
}

func DefaultSessionServiceConfig() SessionServiceConfig {
	return SessionServiceConfig{
		StaleAfter: 2 * time.Hour,
		Defaults:   models.DefaultAdaptiveParameters(),
	}
}

type sessionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	locker    SessionLock
	cfg       SessionServiceConfig

	answers *AnswerValidator
	tracker *TopicPerformanceTracker
	engine  *AdaptiveDifficultyEngine

	now func() time.Time
}

func NewSessionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, locker SessionLock, cfg SessionServiceConfig) SessionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &sessionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		locker:    locker,
		cfg:       cfg,
		answers:   NewAnswerValidator(),
		tracker:   NewTopicPerformanceTracker(repo, logger),
		engine:    NewAdaptiveDifficultyEngine(repo, logger),
		now:       time.Now,
	}
}

// ===== SESSION LIFECYCLE =====

func (s *sessionService) Start(ctx context.Context, studentID string, req *StartSessionRequest) (*StartSessionResponse, error) {
	s.logger.Info("Starting assessment session",
		"student_id", studentID,
		"chapter_id", req.ChapterID,
		"session_type", req.SessionType,
		"mode", req.Mode)

	params := s.resolveParameters(req)
	if err := s.validator.ValidateStartSession(req, params); err != nil {
		return nil, err
	}

	now := s.now()
	var session *models.AssessmentSession
	var question *models.Question
	var staleCount int

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		active, err := s.repo.Session().ListActiveByStudent(ctx, tx, studentID)
		if err != nil {
			return fmt.Errorf("failed to list active sessions: %w", err)
		}
		for _, existing := range active {
			if !existing.IsStale(now, s.cfg.StaleAfter) {
				return ErrActiveSessionExists
			}
		}
		for _, existing := range active {
			if err := s.finishAndSave(ctx, tx, existing, models.SessionAbandoned, models.EndReasonStale, now); err != nil {
				return err
			}
			staleCount++
		}

		session = &models.AssessmentSession{
			StudentID:          studentID,
			ChapterID:          req.ChapterID,
			TopicID:            req.Topic,
			Grade:              req.Grade,
			Status:             models.SessionActive,
			SessionType:        req.SessionType,
			Mode:               req.Mode,
			EstimatedAbility:   params.InitialDifficulty,
			AdaptiveParameters: params,
			StartedAt:          now,
			Version:            1,
		}

		question, err = s.selectorFor(session).Select(ctx, tx, session)
		if err != nil {
			return fmt.Errorf("failed to select first question: %w", err)
		}
		if question == nil {
			return ErrNoQuestionsAvailable
		}
		if err := session.AppendItem(newSessionItem(question, now)); err != nil {
			return fmt.Errorf("failed to append first question: %w", err)
		}

		if err := s.repo.Session().Create(ctx, tx, session); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrActiveSessionExists
			}
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err, "start session", "student_id", studentID)
	}

	if staleCount > 0 {
		metrics.SessionsFinished.WithLabelValues(string(models.SessionAbandoned), models.EndReasonStale).Add(float64(staleCount))
		s.logger.Info("Abandoned stale sessions", "student_id", studentID, "count", staleCount)
	}
	metrics.SessionsStarted.WithLabelValues(string(session.SessionType), string(session.Mode)).Inc()

	s.logger.Info("Assessment session started",
		"session_id", session.ID,
		"student_id", studentID,
		"first_question_id", question.ID)

	return &StartSessionResponse{
		Session:  session,
		Question: toQuestionView(question, &session.Items[0]),
	}, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID uint, studentID string, req *SubmitAnswerRequest) (resp *SubmitAnswerResponse, err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveSubmit(started, submitOutcome(resp, err))
	}()

	s.logger.Info("Submitting answer",
		"session_id", sessionID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		answered          models.SessionItem
		question          *models.Question
		completed         bool
		completedSessions int64
	)

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		session, err := s.loadOwnedSession(ctx, tx, sessionID, studentID, "answer")
		if err != nil {
			return err
		}

		// Retried submissions for an answered item get the stored outcome back
		if req.QuestionNumber != nil {
			if item := session.ItemByNumber(*req.QuestionNumber); item != nil && item.IsAnswered() {
				resp, err = s.replay(ctx, tx, session, item)
				return err
			}
		}

		if session.Status != models.SessionActive {
			return ErrSessionNotActive
		}
		current := session.CurrentItem()
		if current == nil {
			return ErrNoCurrentQuestion
		}
		if req.QuestionNumber != nil && *req.QuestionNumber != current.QuestionNumber {
			return fmt.Errorf("%w: question %d is not the current question %d", ErrInvalidAnswerFormat, *req.QuestionNumber, current.QuestionNumber)
		}

		question, err = s.repo.Question().GetByID(ctx, tx, current.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		raw := RawAnswer{Index: req.AnswerIndex, Text: req.Answer}
		result := s.answers.Validate(question, raw)
		if result.questionDefect {
			s.logger.Error("Question cannot be judged",
				"question_id", question.ID,
				"error", result.Error)
			return fmt.Errorf("%w: %s", ErrMalformedQuestion, result.Error)
		}
		if !result.IsValid {
			return fmt.Errorf("%w: %s", ErrInvalidAnswerFormat, result.Error)
		}

		now := s.now()
		item, err := session.AnswerCurrent(req.AnswerIndex, req.Answer, result.IsCorrect, req.ResponseTimeMs, now)
		if err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}
		answered = *item
		UpdateAbility(session, now)

		if _, err := s.tracker.RecordAttempt(ctx, tx, studentID, answered.Topic, result.IsCorrect, req.ResponseTimeMs, answered.Difficulty); err != nil {
			return err
		}

		if err := s.repo.Question().RecordUsage(ctx, tx, question.ID, result.IsCorrect, req.ResponseTimeMs); err != nil {
			return fmt.Errorf("failed to update question stats: %w", err)
		}

		next, err := s.advance(ctx, tx, session, now)
		if err != nil {
			return err
		}

		if err := session.CheckInvariants(); err != nil {
			return fmt.Errorf("session %d invariant violated: %w", session.ID, err)
		}
		if err := s.repo.Session().Save(ctx, tx, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		completed = session.Status == models.SessionCompleted
		if completed {
			completedSessions, err = s.repo.Session().CountCompletedByStudent(ctx, tx, studentID)
			if err != nil {
				return fmt.Errorf("failed to count completed sessions: %w", err)
			}
		}

		resp = &SubmitAnswerResponse{
			Result:     result,
			Feedback:   s.answers.GetFeedback(question, raw, result),
			Session:    session,
			IsComplete: session.Status.IsTerminal(),
		}
		if next != nil {
			resp.NextQuestion = toQuestionView(next, session.CurrentItem())
		}
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err, "submit answer", "session_id", sessionID)
	}
	if resp.Replayed {
		s.logger.Info("Replayed answered item", "session_id", sessionID, "question_number", *req.QuestionNumber)
		return resp, nil
	}

	s.repo.Question().InvalidateCache(ctx, question.ID)
	metrics.AnswersSubmitted.WithLabelValues(string(question.Type), fmt.Sprint(resp.Result.IsCorrect)).Inc()
	s.publish(ctx, events.NewEvent(events.TypeAnswerRecorded, events.AnswerRecordedData{
		UserID:         studentID,
		SessionID:      sessionID,
		QuestionID:     answered.QuestionID,
		TopicID:        answered.Topic,
		IsCorrect:      resp.Result.IsCorrect,
		Difficulty:     answered.Difficulty,
		ResponseTimeMs: req.ResponseTimeMs,
	}))

	if completed {
		session := resp.Session
		metrics.SessionsFinished.WithLabelValues(string(session.Status), *session.EndReason).Inc()
		s.publish(ctx, events.NewEvent(events.TypeSessionCompleted, events.SessionCompletedData{
			UserID:            studentID,
			SessionID:         session.ID,
			CorrectAnswers:    session.CorrectAnswers,
			AnsweredQuestions: session.AnsweredQuestions,
			CompletedSessions: completedSessions,
			EstimatedAbility:  session.EstimatedAbility,
			EndReason:         *session.EndReason,
		}))
		s.logger.Info("Assessment session completed",
			"session_id", session.ID,
			"reason", *session.EndReason,
			"answered", session.AnsweredQuestions,
			"ability", session.EstimatedAbility)
	}

	return resp, nil
}

func (s *sessionService) Abandon(ctx context.Context, studentID string) (*models.AssessmentSession, error) {
	s.logger.Info("Abandoning active session", "student_id", studentID)

	active, err := s.repo.Session().GetActiveByStudent(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	release, err := s.acquire(ctx, active.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	var session *models.AssessmentSession
	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		session, err = s.loadOwnedSession(ctx, tx, active.ID, studentID, "abandon")
		if err != nil {
			return err
		}
		if session.Status != models.SessionActive {
			return ErrSessionNotActive
		}
		return s.finishAndSave(ctx, tx, session, models.SessionAbandoned, models.EndReasonAbandoned, s.now())
	})
	if err != nil {
		return nil, s.mapTxError(err, "abandon session", "student_id", studentID)
	}

	metrics.SessionsFinished.WithLabelValues(string(models.SessionAbandoned), models.EndReasonAbandoned).Inc()
	s.logger.Info("Session abandoned", "session_id", session.ID, "student_id", studentID)
	return session, nil
}

// CleanupStaleSessions abandons every active session of the student that has
// outlived the stale TTL.
func (s *sessionService) CleanupStaleSessions(ctx context.Context, studentID string) (int, error) {
	now := s.now()
	count := 0

	err := s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		active, err := s.repo.Session().ListActiveByStudent(ctx, tx, studentID)
		if err != nil {
			return fmt.Errorf("failed to list active sessions: %w", err)
		}
		for _, session := range active {
			if !session.IsStale(now, s.cfg.StaleAfter) {
				continue
			}
			if err := s.finishAndSave(ctx, tx, session, models.SessionAbandoned, models.EndReasonStale, now); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, s.mapTxError(err, "cleanup stale sessions", "student_id", studentID)
	}

	if count > 0 {
		metrics.SessionsFinished.WithLabelValues(string(models.SessionAbandoned), models.EndReasonStale).Add(float64(count))
		s.logger.Info("Stale sessions cleaned up", "student_id", studentID, "count", count)
	}
	return count, nil
}

// ===== READ OPERATIONS =====

func (s *sessionService) GetActive(ctx context.Context, studentID string) (*SessionResponse, error) {
	session, err := s.repo.Session().GetActiveByStudent(ctx, nil, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s.buildSessionResponse(ctx, session)
}

func (s *sessionService) GetSession(ctx context.Context, sessionID uint, requesterID string, requesterRole models.UserRole) (*SessionResponse, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.StudentID != requesterID && !requesterRole.IsElevated() {
		return nil, NewPermissionError(requesterID, sessionID, "session", "view", "not owned by requester")
	}

	return s.buildSessionResponse(ctx, session)
}

func (s *sessionService) List(ctx context.Context, studentID string, filters repositories.SessionFilters) (*SessionListResponse, error) {
	filters.StudentID = &studentID
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	sessions, total, err := s.repo.Session().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return &SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

func (s *sessionService) GetStats(ctx context.Context, studentID string) (*repositories.StudentSessionStats, error) {
	stats, err := s.repo.Session().GetStudentStats(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}
	return stats, nil
}
