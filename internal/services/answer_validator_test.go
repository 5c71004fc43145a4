package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

func TestAnswerValidator_MCQ(t *testing.T) {
	v := NewAnswerValidator()
	q := mcqQuestion(1, "ch1", "fractions", 0.5)

	t.Run("CorrectIndex", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Index: intPtr(1)})
		if !result.IsValid || !result.IsCorrect {
			t.Fatalf("expected valid correct result, got %+v", result)
		}
		if result.SelectedAnswer != "B" || result.CorrectAnswer != "B" {
			t.Errorf("unexpected answers: selected=%q correct=%q", result.SelectedAnswer, result.CorrectAnswer)
		}
	})

	t.Run("WrongIndex", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Index: intPtr(3)})
		if !result.IsValid || result.IsCorrect {
			t.Fatalf("expected valid incorrect result, got %+v", result)
		}
		if result.SelectedAnswer != "D" {
			t.Errorf("expected selected D, got %q", result.SelectedAnswer)
		}
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		for _, idx := range []int{-1, 4, 99} {
			result := v.Validate(q, RawAnswer{Index: intPtr(idx)})
			if result.IsValid {
				t.Errorf("index %d should be invalid", idx)
			}
			if result.Error == "" {
				t.Errorf("index %d should carry an error", idx)
			}
		}
	})

	t.Run("NumericTextFallback", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Text: strPtr(" 1 ")})
		if !result.IsValid || !result.IsCorrect {
			t.Fatalf("expected numeric text to select option 1, got %+v", result)
		}
	})

	t.Run("NonNumericText", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Text: strPtr("B")})
		if result.IsValid {
			t.Fatalf("expected option text to be rejected, got %+v", result)
		}
	})
}

func TestAnswerValidator_FillInBlank(t *testing.T) {
	v := NewAnswerValidator()
	q := &models.Question{
		ID:              2,
		Type:            models.QuestionFillInBlank,
		CorrectAnswer:   strPtr("180"),
		AcceptedAnswers: []string{"one hundred eighty"},
		IsActive:        true,
	}

	tests := []struct {
		name    string
		answer  string
		correct bool
	}{
		{"TrimmedWhitespace", " 180 ", true},
		{"Exact", "180", true},
		{"AcceptedCaseInsensitive", "One Hundred Eighty", true},
		{"Wrong", "360", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(q, RawAnswer{Text: strPtr(tt.answer)})
			require.True(t, result.IsValid)
			assert.Equal(t, tt.correct, result.IsCorrect)
			assert.Equal(t, "180", result.CorrectAnswer)
		})
	}

	t.Run("MissingText", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Index: intPtr(0)})
		assert.False(t, result.IsValid)
	})
}

func TestAnswerValidator_ShortAnswer(t *testing.T) {
	v := NewAnswerValidator()
	q := &models.Question{
		ID:              3,
		Type:            models.QuestionShortAnswer,
		AcceptedAnswers: []string{"photosynthesis", "light energy"},
		IsActive:        true,
	}

	t.Run("ContainsKeyword", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Text: strPtr("Plants use Photosynthesis to make food")})
		assert.True(t, result.IsValid)
		assert.True(t, result.IsCorrect)
		assert.Equal(t, "photosynthesis", result.CorrectAnswer)
	})

	t.Run("ContainedInKeyword", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Text: strPtr("light")})
		assert.True(t, result.IsCorrect)
	})

	t.Run("NoKeyword", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Text: strPtr("respiration")})
		assert.True(t, result.IsValid)
		assert.False(t, result.IsCorrect)
	})

	t.Run("BlankNeverMatches", func(t *testing.T) {
		result := v.Validate(q, RawAnswer{Text: strPtr("   ")})
		assert.False(t, result.IsCorrect)
	})

	t.Run("CorrectAnswerIsCanonical", func(t *testing.T) {
		withCanonical := *q
		withCanonical.CorrectAnswer = strPtr("Photosynthesis converts light energy")
		result := v.Validate(&withCanonical, RawAnswer{Text: strPtr("photosynthesis")})
		assert.Equal(t, "Photosynthesis converts light energy", result.CorrectAnswer)
	})
}

func TestAnswerValidator_MalformedQuestions(t *testing.T) {
	v := NewAnswerValidator()

	tests := []struct {
		name     string
		question *models.Question
	}{
		{"Nil", nil},
		{"MCQWithoutChoices", &models.Question{ID: 10, Type: models.QuestionMCQ, CorrectIndex: intPtr(0)}},
		{"MCQIndexOutOfChoices", &models.Question{ID: 11, Type: models.QuestionMCQ, Choices: []string{"a"}, CorrectIndex: intPtr(2)}},
		{"MCQWithoutIndex", &models.Question{ID: 12, Type: models.QuestionMCQ, Choices: []string{"a", "b"}}},
		{"FillInBlankBlankAnswer", &models.Question{ID: 13, Type: models.QuestionFillInBlank, CorrectAnswer: strPtr("  ")}},
		{"ShortAnswerNoKeywords", &models.Question{ID: 14, Type: models.QuestionShortAnswer}},
		{"UnknownType", &models.Question{ID: 15, Type: "essay"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.question, RawAnswer{Index: intPtr(0), Text: strPtr("a")})
			if result.IsValid {
				t.Fatalf("expected malformed question to be rejected")
			}
			if !result.questionDefect {
				t.Errorf("expected question defect to be flagged")
			}
		})
	}
}

func TestAnswerValidator_GetFeedback(t *testing.T) {
	v := NewAnswerValidator()
	q := mcqQuestion(1, "ch1", "fractions", 0.5)
	q.Explanation = strPtr("Half of four is two.")

	t.Run("Correct", func(t *testing.T) {
		raw := RawAnswer{Index: intPtr(1)}
		feedback := v.GetFeedback(q, raw, v.Validate(q, raw))
		assert.True(t, feedback.IsCorrect)
		assert.Equal(t, "Correct!", feedback.Message)
		require.NotNil(t, feedback.Explanation)
		assert.Equal(t, "Half of four is two.", *feedback.Explanation)
	})

	t.Run("Incorrect", func(t *testing.T) {
		raw := RawAnswer{Index: intPtr(0)}
		feedback := v.GetFeedback(q, raw, v.Validate(q, raw))
		assert.False(t, feedback.IsCorrect)
		assert.Equal(t, "A", feedback.SelectedAnswer)
		assert.Contains(t, feedback.Message, "correct answer is B")
	})

	t.Run("Unreadable", func(t *testing.T) {
		raw := RawAnswer{Index: intPtr(9)}
		feedback := v.GetFeedback(q, raw, v.Validate(q, raw))
		assert.True(t, strings.HasPrefix(feedback.Message, "Your answer could not be read"))
	})

	t.Run("NoExplanation", func(t *testing.T) {
		plain := mcqQuestion(2, "ch1", "fractions", 0.5)
		raw := RawAnswer{Index: intPtr(1)}
		feedback := v.GetFeedback(plain, raw, v.Validate(plain, raw))
		assert.Nil(t, feedback.Explanation)
	})
}
