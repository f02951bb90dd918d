package application

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

// answerSanitizer strips markup from free-text answers before they are
// validated and stored. Answers constrained by AllowedValues, and answers other
// fields depend on, are left untouched since they are compared verbatim against
// values the form author wrote.
type answerSanitizer struct {
	policy *bluemonday.Policy
}

func newAnswerSanitizer() *answerSanitizer {
	return &answerSanitizer{policy: bluemonday.StrictPolicy()}
}

// sanitize returns a copy of answers; the input map is not modified.
func (s *answerSanitizer) sanitize(form domain.FormSchema, answers map[string]domain.TypedValue) map[string]domain.TypedValue {
	dependedOn := make(map[string]struct{})
	for _, field := range form.Fields {
		for _, dep := range field.DependsOn {
			dependedOn[dep.Field] = struct{}{}
		}
	}

	cleaned := make(map[string]domain.TypedValue, len(answers))
	for name, answer := range answers {
		cleaned[name] = answer

		field, ok := form.Field(name)
		if !ok || field.Type != domain.FieldTypeText || len(field.AllowedValues) != 0 {
			continue
		}
		if _, depended := dependedOn[name]; depended {
			continue
		}
		text, isString := answer.Str()
		if !isString {
			continue
		}
		cleaned[name] = domain.StringValue(html.UnescapeString(s.policy.Sanitize(text)))
	}
	return cleaned
}
