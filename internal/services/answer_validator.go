package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// RawAnswer is the submitted answer before it is interpreted by a variant.
type RawAnswer struct {
	Index *int
	Text  *string
}

// QuestionVariant is the per-type answer key of a question.
type QuestionVariant interface {
	Type() models.QuestionType
	CanonicalAnswer() string
	Judge(raw RawAnswer) ValidationResult
}

// VariantFor builds the variant for q, rejecting questions that lack the
// fields their type needs.
func VariantFor(q *models.Question) (QuestionVariant, error) {
	if q == nil {
		return nil, fmt.Errorf("question is nil")
	}

	switch q.Type {
	case models.QuestionMCQ:
		if len(q.Choices) == 0 {
			return nil, fmt.Errorf("mcq question %d has no choices", q.ID)
		}
		if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Choices) {
			return nil, fmt.Errorf("mcq question %d has no valid correct index", q.ID)
		}
		return mcqVariant{choices: q.Choices, correctIndex: *q.CorrectIndex}, nil

	case models.QuestionFillInBlank:
		if q.CorrectAnswer == nil || normalizeAnswer(*q.CorrectAnswer) == "" {
			return nil, fmt.Errorf("fill-in-blank question %d has no correct answer", q.ID)
		}
		return fillInBlankVariant{correct: *q.CorrectAnswer, accepted: q.AcceptedAnswers}, nil

	case models.QuestionShortAnswer:
		if len(q.AcceptedAnswers) == 0 {
			return nil, fmt.Errorf("short-answer question %d has no accepted answers", q.ID)
		}
		canonical := q.AcceptedAnswers[0]
		if q.CorrectAnswer != nil && *q.CorrectAnswer != "" {
			canonical = *q.CorrectAnswer
		}
		return shortAnswerVariant{canonical: canonical, keywords: q.AcceptedAnswers}, nil

	default:
		return nil, fmt.Errorf("unknown question type %q", q.Type)
	}
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type mcqVariant struct {
	choices      []string
	correctIndex int
}

func (v mcqVariant) Type() models.QuestionType { return models.QuestionMCQ }

func (v mcqVariant) CanonicalAnswer() string { return v.choices[v.correctIndex] }

func (v mcqVariant) Judge(raw RawAnswer) ValidationResult {
	result := ValidationResult{CorrectAnswer: v.CanonicalAnswer()}

	index, ok := mcqIndex(raw)
	if !ok {
		result.Error = "answer must be an option index"
		return result
	}
	if index < 0 || index >= len(v.choices) {
		result.Error = fmt.Sprintf("answer index %d out of range [0, %d)", index, len(v.choices))
		return result
	}

	result.IsValid = true
	result.IsCorrect = index == v.correctIndex
	result.SelectedAnswer = v.choices[index]
	return result
}

func mcqIndex(raw RawAnswer) (int, bool) {
	if raw.Index != nil {
		return *raw.Index, true
	}
	if raw.Text != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*raw.Text))
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

type fillInBlankVariant struct {
	correct  string
	accepted []string
}

func (v fillInBlankVariant) Type() models.QuestionType { return models.QuestionFillInBlank }

func (v fillInBlankVariant) CanonicalAnswer() string { return v.correct }

func (v fillInBlankVariant) Judge(raw RawAnswer) ValidationResult {
	result := ValidationResult{CorrectAnswer: v.correct}
	if raw.Text == nil {
		result.Error = "answer text is required"
		return result
	}

	answer := normalizeAnswer(*raw.Text)
	result.IsValid = true
	result.SelectedAnswer = *raw.Text

	if answer == normalizeAnswer(v.correct) {
		result.IsCorrect = true
		return result
	}
	for _, accepted := range v.accepted {
		if answer == normalizeAnswer(accepted) {
			result.IsCorrect = true
			return result
		}
	}
	return result
}

type shortAnswerVariant struct {
	canonical string
	keywords  []string
}

func (v shortAnswerVariant) Type() models.QuestionType { return models.QuestionShortAnswer }

func (v shortAnswerVariant) CanonicalAnswer() string { return v.canonical }

func (v shortAnswerVariant) Judge(raw RawAnswer) ValidationResult {
	result := ValidationResult{CorrectAnswer: v.canonical}
	if raw.Text == nil {
		result.Error = "answer text is required"
		return result
	}

	result.IsValid = true
	result.SelectedAnswer = *raw.Text
	result.IsCorrect = ContainsKeyword(*raw.Text, v.keywords)
	return result
}

// ContainsKeyword is the short-answer rule: after normalization the answer
// contains, or is contained by, at least one non-empty keyword phrase.
func ContainsKeyword(answer string, keywords []string) bool {
	a := normalizeAnswer(answer)
	if a == "" {
		return false
	}
	for _, keyword := range keywords {
		k := normalizeAnswer(keyword)
		if k == "" {
			continue
		}
		if strings.Contains(a, k) || strings.Contains(k, a) {
			return true
		}
	}
	return false
}

// AnswerValidator judges answers against any question variant.
type AnswerValidator struct{}

func NewAnswerValidator() *AnswerValidator {
	return &AnswerValidator{}
}

func (v *AnswerValidator) Validate(question *models.Question, raw RawAnswer) ValidationResult {
	variant, err := VariantFor(question)
	if err != nil {
		return ValidationResult{Error: err.Error(), questionDefect: true}
	}
	return variant.Judge(raw)
}

// GetFeedback builds the explanation shown after an answer. It has no side effects.
func (v *AnswerValidator) GetFeedback(question *models.Question, raw RawAnswer, result ValidationResult) Feedback {
	feedback := Feedback{
		IsCorrect:      result.IsCorrect,
		CorrectAnswer:  result.CorrectAnswer,
		SelectedAnswer: result.SelectedAnswer,
	}
	if question != nil && question.Explanation != nil && *question.Explanation != "" {
		feedback.Explanation = question.Explanation
	}

	switch {
	case !result.IsValid:
		feedback.Message = "Your answer could not be read: " + result.Error
	case result.IsCorrect:
		feedback.Message = "Correct!"
	case result.CorrectAnswer != "":
		feedback.Message = fmt.Sprintf("Not quite. The correct answer is %s.", result.CorrectAnswer)
	default:
		feedback.Message = "Not quite."
	}
	return feedback
}
