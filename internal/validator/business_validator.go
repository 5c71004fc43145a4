package validator

import (
	"fmt"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// ValidateStartSession checks struct tags plus the cross-field rules of a
// start request against the parameters it would produce.
func (v *Validator) ValidateStartSession(req *StartSessionRequest, resolved models.AdaptiveParameters) error {
	var errs ValidationErrors
	if err := v.Validate(req); err != nil {
		errs = append(errs, ToValidationErrors(err)...)
	}

	if resolved.MinQuestions > resolved.MaxQuestions {
		errs = append(errs, ValidationError{
			Field:   "adaptive_parameters.min_questions",
			Message: fmt.Sprintf("must not exceed max_questions (%d)", resolved.MaxQuestions),
			Value:   resolved.MinQuestions,
			Rule:    "min_le_max",
		})
	}

	if req.AdaptiveParameters != nil && req.AdaptiveParameters.DifficultyStep != nil {
		errs = append(errs, ValidationError{
			Field:   "adaptive_parameters.difficulty_step",
			Message: fmt.Sprintf("is fixed at %.1f", models.DifficultyStep),
			Value:   *req.AdaptiveParameters.DifficultyStep,
			Rule:    "not_configurable",
		})
	}

	if req.SessionType == models.SessionTypeFixed && req.AdaptiveParameters != nil && req.AdaptiveParameters.ConfidenceThreshold != nil {
		errs = append(errs, ValidationError{
			Field:   "adaptive_parameters.confidence_threshold",
			Message: "is not used by fixed sessions",
			Rule:    "fixed_session",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
