package validator

import (
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// AdaptiveParametersRequest overrides individual session parameters.
type AdaptiveParametersRequest struct {
	InitialDifficulty   *float64 `json:"initial_difficulty" validate:"omitempty,difficulty"`
	// DifficultyStep is not configurable: topic difficulty always moves in
	// steps of models.DifficultyStep. Any value is rejected.
	DifficultyStep      *float64 `json:"difficulty_step"`
	MaxQuestions        *int     `json:"max_questions" validate:"omitempty,min=1,max=100"`
	MinQuestions        *int     `json:"min_questions" validate:"omitempty,min=1,max=100"`
	ConfidenceThreshold *float64 `json:"confidence_threshold" validate:"omitempty,confidence"`
}

// StartSessionRequest represents the request structure for starting a session
type StartSessionRequest struct {
	SessionType        models.SessionType         `json:"session_type" validate:"required,session_type"`
	Mode               models.SessionMode         `json:"mode" validate:"required,session_mode"`
	ChapterID          string                     `json:"chapter_id" validate:"required,max=100"`
	Grade              *int                       `json:"grade" validate:"omitempty,min=1,max=12"`
	Topic              *string                    `json:"topic" validate:"omitempty,min=1,max=100"`
	MaxQuestions       *int                       `json:"max_questions" validate:"omitempty,min=1,max=100"`
	AdaptiveParameters *AdaptiveParametersRequest `json:"adaptive_parameters"`
}

// SubmitAnswerRequest carries either an option index (mcq) or free text.
type SubmitAnswerRequest struct {
	AnswerIndex    *int    `json:"answer_index" validate:"required_without=Answer"`
	Answer         *string `json:"answer" validate:"omitempty,max=1000"`
	ResponseTimeMs int64   `json:"response_time_ms" validate:"min=0,max=3600000"`
	QuestionNumber *int    `json:"question_number" validate:"omitempty,min=1"`
}
