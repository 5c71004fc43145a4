package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var errs ValidationErrors
	require.True(t, errors.As(err, &errs), "expected ValidationErrors, got %v", err)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	return fields
}

func TestValidator_StartSessionRequest(t *testing.T) {
	v := New()
	defaults := models.DefaultAdaptiveParameters()

	valid := func() *StartSessionRequest {
		return &StartSessionRequest{
			SessionType: models.SessionTypeAdaptive,
			Mode:        models.ModePractice,
			ChapterID:   "ch-7",
		}
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, v.ValidateStartSession(valid(), defaults))
	})

	t.Run("UsesJSONFieldNames", func(t *testing.T) {
		req := valid()
		req.ChapterID = ""
		req.SessionType = "random"
		fields := fieldsOf(t, v.ValidateStartSession(req, defaults))
		assert.ElementsMatch(t, []string{"chapter_id", "session_type"}, fields)
	})

	t.Run("GradeRange", func(t *testing.T) {
		req := valid()
		req.Grade = intPtr(13)
		assert.Equal(t, []string{"grade"}, fieldsOf(t, v.ValidateStartSession(req, defaults)))
	})

	t.Run("NestedOverrides", func(t *testing.T) {
		req := valid()
		req.AdaptiveParameters = &AdaptiveParametersRequest{
			InitialDifficulty:   floatPtr(1.2),
			ConfidenceThreshold: floatPtr(0),
		}
		fields := fieldsOf(t, v.ValidateStartSession(req, defaults))
		assert.ElementsMatch(t, []string{"initial_difficulty", "confidence_threshold"}, fields)
	})

	t.Run("MinAboveMax", func(t *testing.T) {
		resolved := defaults
		resolved.MinQuestions = 8
		resolved.MaxQuestions = 6
		err := v.ValidateStartSession(valid(), resolved)
		assert.Equal(t, []string{"adaptive_parameters.min_questions"}, fieldsOf(t, err))
	})

	t.Run("FixedRejectsConfidence", func(t *testing.T) {
		req := valid()
		req.SessionType = models.SessionTypeFixed
		req.AdaptiveParameters = &AdaptiveParametersRequest{ConfidenceThreshold: floatPtr(0.9)}
		err := v.ValidateStartSession(req, defaults)
		assert.Equal(t, []string{"adaptive_parameters.confidence_threshold"}, fieldsOf(t, err))
	})

	t.Run("DifficultyStepNotConfigurable", func(t *testing.T) {
		req := valid()
		req.AdaptiveParameters = &AdaptiveParametersRequest{DifficultyStep: floatPtr(0.1)}
		err := v.ValidateStartSession(req, defaults)
		assert.Equal(t, []string{"adaptive_parameters.difficulty_step"}, fieldsOf(t, err))
	})

	t.Run("CombinesTagAndCrossFieldErrors", func(t *testing.T) {
		req := valid()
		req.ChapterID = ""
		resolved := defaults
		resolved.MinQuestions = 30
		fields := fieldsOf(t, v.ValidateStartSession(req, resolved))
		assert.ElementsMatch(t, []string{"chapter_id", "adaptive_parameters.min_questions"}, fields)
	})
}

func TestValidator_SubmitAnswerRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     SubmitAnswerRequest
		wantErr bool
	}{
		{"Index", SubmitAnswerRequest{AnswerIndex: intPtr(2)}, false},
		{"Text", SubmitAnswerRequest{Answer: strPtr("180")}, false},
		{"Neither", SubmitAnswerRequest{}, true},
		{"NegativeResponseTime", SubmitAnswerRequest{AnswerIndex: intPtr(0), ResponseTimeMs: -1}, true},
		{"ZeroQuestionNumber", SubmitAnswerRequest{AnswerIndex: intPtr(0), QuestionNumber: intPtr(0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
	assert.Equal(t, "validation failed: chapter_id is required",
		ValidationErrors{{Field: "chapter_id", Message: "is required"}}.Error())
	assert.Equal(t, "validation failed: 2 field errors",
		ValidationErrors{{Field: "a"}, {Field: "b"}}.Error())
}
