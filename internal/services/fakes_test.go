package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int             { return &v }
func strPtr(v string) *string       { return &v }
func floatPtr(v float64) *float64   { return &v }

// fakeRepository is an in-memory Repository. Reads return copies so the
// services see the same aliasing rules as with a database.
type fakeRepository struct {
	sessions *fakeSessionRepo
	question *fakeQuestionRepo
	topics   *fakeTopicPerformanceRepo
	users    *fakeUserRepo
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		sessions: &fakeSessionRepo{byID: map[uint]*models.AssessmentSession{}},
		question: &fakeQuestionRepo{byID: map[uint]*models.Question{}},
		topics:   &fakeTopicPerformanceRepo{records: map[string]*models.TopicPerformance{}},
		users:    &fakeUserRepo{users: map[string]*models.User{}},
	}
}

func (r *fakeRepository) Session() repositories.SessionRepository                   { return r.sessions }
func (r *fakeRepository) Question() repositories.QuestionRepository                 { return r.question }
func (r *fakeRepository) TopicPerformance() repositories.TopicPerformanceRepository { return r.topics }
func (r *fakeRepository) User() repositories.UserRepository                         { return r.users }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

// ===== SESSIONS =====

type fakeSessionRepo struct {
	mu     sync.Mutex
	byID   map[uint]*models.AssessmentSession
	nextID uint

	// saveErr is returned by the next Save, then cleared
	saveErr error
}

func copySession(s *models.AssessmentSession) *models.AssessmentSession {
	c := *s
	c.Items = append([]models.SessionItem(nil), s.Items...)
	c.AbilityHistory = append(c.AbilityHistory[:0:0], s.AbilityHistory...)
	return &c
}

func (f *fakeSessionRepo) put(s *models.AssessmentSession) *models.AssessmentSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextID++
		s.ID = f.nextID
	} else if s.ID > f.nextID {
		f.nextID = s.ID
	}
	for i := range s.Items {
		s.Items[i].SessionID = s.ID
	}
	f.byID[s.ID] = copySession(s)
	return s
}

func (f *fakeSessionRepo) stored(id uint) *models.AssessmentSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copySession(f.byID[id])
}

func (f *fakeSessionRepo) Create(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	if err := session.CheckInvariants(); err != nil {
		return err
	}
	f.mu.Lock()
	for _, existing := range f.byID {
		if existing.StudentID == session.StudentID && existing.Status == models.SessionActive {
			f.mu.Unlock()
			return fmt.Errorf("session: %w", repositories.ErrDuplicate)
		}
	}
	f.mu.Unlock()
	f.put(session)
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.AssessmentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("session %d: %w", id, repositories.ErrNotFound)
	}
	return copySession(s), nil
}

func (f *fakeSessionRepo) GetActiveByStudent(ctx context.Context, tx *gorm.DB, studentID string) (*models.AssessmentSession, error) {
	active, _ := f.ListActiveByStudent(ctx, tx, studentID)
	if len(active) == 0 {
		return nil, fmt.Errorf("active session for %s: %w", studentID, repositories.ErrNotFound)
	}
	return active[0], nil
}

func (f *fakeSessionRepo) ListActiveByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.AssessmentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AssessmentSession
	for _, s := range f.byID {
		if s.StudentID == studentID && s.Status == models.SessionActive {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSessionRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.SessionFilters) ([]*models.AssessmentSession, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AssessmentSession
	for _, s := range f.byID {
		if filters.StudentID != nil && s.StudentID != *filters.StudentID {
			continue
		}
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		out = append(out, copySession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := int64(len(out))
	if filters.Offset < len(out) {
		out = out[filters.Offset:]
	} else {
		out = nil
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

func (f *fakeSessionRepo) Save(ctx context.Context, tx *gorm.DB, session *models.AssessmentSession) error {
	if err := session.CheckInvariants(); err != nil {
		return err
	}
	f.mu.Lock()
	if err := f.saveErr; err != nil {
		f.saveErr = nil
		f.mu.Unlock()
		return err
	}
	stored, ok := f.byID[session.ID]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("session %d: %w", session.ID, repositories.ErrNotFound)
	}
	if stored.Version != session.Version {
		f.mu.Unlock()
		return repositories.ErrVersionConflict
	}
	session.Version++
	f.mu.Unlock()
	f.put(session)
	return nil
}

func (f *fakeSessionRepo) CountCompletedByStudent(ctx context.Context, tx *gorm.DB, studentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.byID {
		if s.StudentID == studentID && s.Status == models.SessionCompleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionRepo) GetStudentStats(ctx context.Context, tx *gorm.DB, studentID string) (*repositories.StudentSessionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &repositories.StudentSessionStats{}
	abilitySum := 0.0
	for _, s := range f.byID {
		if s.StudentID != studentID {
			continue
		}
		stats.TotalSessions++
		switch s.Status {
		case models.SessionCompleted:
			stats.CompletedSessions++
			abilitySum += s.EstimatedAbility
		case models.SessionAbandoned:
			stats.AbandonedSessions++
		}
	}
	if stats.CompletedSessions > 0 {
		stats.AverageAbility = abilitySum / float64(stats.CompletedSessions)
	}
	return stats, nil
}

// ===== QUESTIONS =====

type fakeQuestionRepo struct {
	mu      sync.Mutex
	byID    map[uint]*models.Question
	queries []repositories.QuestionCriteria
	// invalidated records InvalidateCache calls in order
	invalidated []uint
}

func (f *fakeQuestionRepo) add(questions ...*models.Question) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range questions {
		c := *q
		f.byID[q.ID] = &c
	}
}

func (f *fakeQuestionRepo) stored(id uint) *models.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.byID[id]
	return &c
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("question %d: %w", id, repositories.ErrNotFound)
	}
	c := *q
	return &c, nil
}

func (f *fakeQuestionRepo) FindCandidates(ctx context.Context, tx *gorm.DB, criteria repositories.QuestionCriteria) ([]*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, criteria)

	excluded := make(map[uint]bool, len(criteria.ExcludeIDs))
	for _, id := range criteria.ExcludeIDs {
		excluded[id] = true
	}

	var out []*models.Question
	for _, q := range f.byID {
		switch {
		case !q.IsActive, excluded[q.ID]:
			continue
		case criteria.TopicID != "" && q.TopicID != criteria.TopicID:
			continue
		case criteria.ChapterID != "" && q.ChapterID != criteria.ChapterID:
			continue
		case criteria.Grade != nil && (q.Grade == nil || *q.Grade != *criteria.Grade):
			continue
		case criteria.MinDifficulty != nil && q.Difficulty < *criteria.MinDifficulty-1e-9:
			continue
		case criteria.MaxDifficulty != nil && q.Difficulty > *criteria.MaxDifficulty+1e-9:
			continue
		}
		c := *q
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch criteria.OrderBy {
		case repositories.OrderByDistanceToTarget:
			da, db := math.Abs(a.Difficulty-criteria.TargetDifficulty), math.Abs(b.Difficulty-criteria.TargetDifficulty)
			if da != db {
				return da < db
			}
		case repositories.OrderByUsageThenSuccess:
			if a.UsageCount != b.UsageCount {
				return a.UsageCount < b.UsageCount
			}
			if a.SuccessRate != b.SuccessRate {
				return a.SuccessRate > b.SuccessRate
			}
			return a.ID < b.ID
		}
		if a.UsageCount != b.UsageCount {
			return a.UsageCount < b.UsageCount
		}
		return a.ID < b.ID
	})

	if criteria.Limit > 0 && len(out) > criteria.Limit {
		out = out[:criteria.Limit]
	}
	return out, nil
}

func (f *fakeQuestionRepo) ListTopicsByChapter(ctx context.Context, tx *gorm.DB, chapterID string, grade *int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var topics []string
	for _, q := range f.byID {
		if !q.IsActive || q.ChapterID != chapterID {
			continue
		}
		if grade != nil && (q.Grade == nil || *q.Grade != *grade) {
			continue
		}
		if !seen[q.TopicID] {
			seen[q.TopicID] = true
			topics = append(topics, q.TopicID)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

func (f *fakeQuestionRepo) RecordUsage(ctx context.Context, tx *gorm.DB, questionID uint, isCorrect bool, responseTimeMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.byID[questionID]
	if !ok {
		return fmt.Errorf("question %d: %w", questionID, repositories.ErrNotFound)
	}
	q.RecordUsage(isCorrect, responseTimeMs)
	return nil
}

func (f *fakeQuestionRepo) InvalidateCache(ctx context.Context, questionID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, questionID)
}

// ===== TOPIC PERFORMANCE =====

type fakeTopicPerformanceRepo struct {
	mu      sync.Mutex
	records map[string]*models.TopicPerformance
	nextID  uint
	// saveErr, when set, fails every Save
	saveErr error
}

func topicKey(studentID, topicID string) string {
	return studentID + "|" + topicID
}

func (f *fakeTopicPerformanceRepo) Get(ctx context.Context, tx *gorm.DB, studentID, topicID string) (*models.TopicPerformance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[topicKey(studentID, topicID)]
	if !ok {
		return nil, fmt.Errorf("topic performance %s/%s: %w", studentID, topicID, repositories.ErrNotFound)
	}
	c := *r
	return &c, nil
}

func (f *fakeTopicPerformanceRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, studentID, topicID string) (*models.TopicPerformance, error) {
	return f.Get(ctx, tx, studentID, topicID)
}

func (f *fakeTopicPerformanceRepo) Save(ctx context.Context, tx *gorm.DB, record *models.TopicPerformance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if record.ID == 0 {
		f.nextID++
		record.ID = f.nextID
	}
	c := *record
	f.records[topicKey(record.StudentID, record.TopicID)] = &c
	return nil
}

func (f *fakeTopicPerformanceRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.TopicPerformance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TopicPerformance
	for _, r := range f.records {
		if r.StudentID == studentID {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

func (f *fakeTopicPerformanceRepo) ListByStudentAndTopics(ctx context.Context, tx *gorm.DB, studentID string, topicIDs []string) ([]*models.TopicPerformance, error) {
	all, _ := f.ListByStudent(ctx, tx, studentID)
	wanted := map[string]bool{}
	for _, t := range topicIDs {
		wanted[t] = true
	}
	var out []*models.TopicPerformance
	for _, r := range all {
		if wanted[r.TopicID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// ===== USERS =====

type fakeUserRepo struct {
	users map[string]*models.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	return u, nil
}

// ===== FIXTURES =====

func mcqQuestion(id uint, chapter, topic string, difficulty float64) *models.Question {
	return &models.Question{
		ID:           id,
		ChapterID:    chapter,
		TopicID:      topic,
		Type:         models.QuestionMCQ,
		Text:         fmt.Sprintf("Question %d", id),
		Difficulty:   difficulty,
		Choices:      []string{"A", "B", "C", "D"},
		CorrectIndex: intPtr(1),
		IsActive:     true,
	}
}

// seedTopic adds n mcq questions for one topic with ids from firstID.
func seedTopic(repo *fakeRepository, firstID uint, chapter, topic string, n int, difficulty float64) {
	for i := 0; i < n; i++ {
		repo.question.add(mcqQuestion(firstID+uint(i), chapter, topic, difficulty))
	}
}

// fakeLock records acquisitions and can refuse them.
type fakeLock struct {
	mu       sync.Mutex
	err      error
	acquired int
	released int
}

func (l *fakeLock) Acquire(ctx context.Context, sessionID uint) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, nil
}
