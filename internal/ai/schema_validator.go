package ai

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kurslab/tutorium/internal/contract"
)

// SchemaValidator checks untyped model output against the structural
// contracts and renders violations as human-readable strings suitable for a
// repair prompt.
type SchemaValidator struct {
	validate *validator.Validate
}

func NewSchemaValidator() *SchemaValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Violations are fed back to the model, so report JSON names, not Go
	// field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(questionStructLevel, contract.Question{})
	return &SchemaValidator{validate: v}
}

// Validate returns nil on success, otherwise one message per violation.
func (s *SchemaValidator) Validate(value any) []string {
	err := s.validate.Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	ok := false
	if ve, isVE := err.(validator.ValidationErrors); isVE {
		verrs = ve
		ok = true
	}
	if !ok {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldViolation(fe))
	}
	return msgs
}

// ValidateTestSpec normalizes defaults and validates a generated test spec.
func (s *SchemaValidator) ValidateTestSpec(spec *contract.TestSpec) []string {
	spec.Normalize()
	return s.Validate(spec)
}

// ValidateCheckResult validates an AI grading result.
func (s *SchemaValidator) ValidateCheckResult(result *contract.AnswerCheckResult) []string {
	return s.Validate(result)
}

// BuildRepairPrompt rebuilds a generation prompt from the previous attempt's
// validation errors.
func BuildRepairPrompt(originalPrompt string, errs []string) string {
	var sb strings.Builder
	sb.WriteString("The previous response had validation errors:\n")
	for _, e := range errs {
		sb.WriteString("- ")
		sb.WriteString(e)
		sb.WriteString("\n")
	}
	sb.WriteString("\nPlease fix these issues and try again.\n\n")
	sb.WriteString("Original request: ")
	sb.WriteString(originalPrompt)
	return sb.String()
}

func fieldViolation(fe validator.FieldError) string {
	path := fe.Namespace()
	// Drop the root struct name; the model never sees Go type names.
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: field is required", path)
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", path, fe.Param())
	case "min":
		return fmt.Sprintf("%s: must have at least %s", path, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must have at most %s", path, fe.Param())
	case "mcoptions":
		return fmt.Sprintf("%s: multiple_choice questions need at least 2 options", path)
	case "mcindices":
		return fmt.Sprintf("%s: multiple_choice correctAnswer must be a non-empty array of option indices", path)
	case "mcrange":
		return fmt.Sprintf("%s: correctAnswer indices must reference existing options", path)
	case "sanooptions":
		return fmt.Sprintf("%s: short_answer questions must not have options", path)
	case "satext":
		return fmt.Sprintf("%s: short_answer correctAnswer must be a non-empty string", path)
	default:
		return fmt.Sprintf("%s: failed %q validation", path, fe.Tag())
	}
}

// questionStructLevel enforces the cross-field rules the tag syntax cannot
// express: options exist iff the question is multiple choice, and the correct
// answer kind matches the question type.
func questionStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(contract.Question)

	switch q.Type {
	case contract.QuestionTypeMultipleChoice:
		if len(q.Options) < 2 {
			sl.ReportError(q.Options, "Options", "options", "mcoptions", "")
		}
		if q.CorrectAnswer.IsText || len(q.CorrectAnswer.Indices) == 0 {
			sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correctAnswer", "mcindices", "")
		} else {
			for _, idx := range q.CorrectAnswer.Indices {
				if idx < 0 || idx >= len(q.Options) {
					sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correctAnswer", "mcrange", "")
					break
				}
			}
		}
	case contract.QuestionTypeShortAnswer:
		if len(q.Options) > 0 {
			sl.ReportError(q.Options, "Options", "options", "sanooptions", "")
		}
		if !q.CorrectAnswer.IsText || q.CorrectAnswer.Text == "" {
			sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correctAnswer", "satext", "")
		}
	}
}
