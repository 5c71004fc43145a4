package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground/validator with the engine's request rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	registerRules(v)
	return &Validator{validate: v}
}

// Validate runs struct tags and returns ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ToValidationErrors converts validator output into ValidationErrors.
func ToValidationErrors(err error) ValidationErrors {
	var converted ValidationErrors
	if errors.As(err, &converted) {
		return converted
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func registerRules(v *validator.Validate) {
	v.RegisterValidation("session_type", func(fl validator.FieldLevel) bool {
		switch models.SessionType(fl.Field().String()) {
		case models.SessionTypeAdaptive, models.SessionTypeFixed:
			return true
		}
		return false
	})

	v.RegisterValidation("session_mode", func(fl validator.FieldLevel) bool {
		switch models.SessionMode(fl.Field().String()) {
		case models.ModeAssessment, models.ModePractice, models.ModeRevision:
			return true
		}
		return false
	})

	v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		d := fl.Field().Float()
		return d >= 0 && d <= 1
	})

	v.RegisterValidation("confidence", func(fl validator.FieldLevel) bool {
		c := fl.Field().Float()
		return c > 0 && c <= 1
	})
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is missing", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "session_type":
		return "must be adaptive or fixed"
	case "session_mode":
		return "must be assessment, practice or revision"
	case "difficulty":
		return "must be between 0 and 1"
	case "confidence":
		return "must be greater than 0 and at most 1"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", fe.Tag())
	}
}
