package repositories

import (
	"time"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	StudentID *string               `json:"student_id"`
	ChapterID *string               `json:"chapter_id"`
	Status    *models.SessionStatus `json:"status"`
	DateFrom  *time.Time            `json:"date_from"`
	DateTo    *time.Time            `json:"date_to"`
	Limit     int                   `json:"limit"`
	Offset    int                   `json:"offset"`
	SortBy    string                `json:"sort_by"`    // "started_at", "created_at", "estimated_ability"
	SortOrder string                `json:"sort_order"` // "asc", "desc"
}

// QuestionOrdering selects how candidate questions are ranked.
type QuestionOrdering int

const (
	// usage_count ASC, success_rate DESC
	OrderByUsageThenSuccess QuestionOrdering = iota
	// usage_count ASC
	OrderByUsage
	// |difficulty - target| ASC, usage_count ASC
	OrderByDistanceToTarget
)

// QuestionCriteria describes a candidate query. Only active questions are
// ever returned.
type QuestionCriteria struct {
	TopicID          string
	ChapterID        string
	Grade            *int
	MinDifficulty    *float64
	MaxDifficulty    *float64
	TargetDifficulty float64
	ExcludeIDs       []uint
	OrderBy          QuestionOrdering
	Limit            int
}

// ===== SHARED STATISTICS STRUCTS =====

type StudentSessionStats struct {
	TotalSessions     int64   `json:"total_sessions"`
	CompletedSessions int64   `json:"completed_sessions"`
	AbandonedSessions int64   `json:"abandoned_sessions"`
	AverageAbility    float64 `json:"average_ability"`
}
