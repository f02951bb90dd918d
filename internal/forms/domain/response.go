package domain

import (
	"context"
	"time"
)

// ResponseRecord holds the answers submitted against one form. It has no
// meaning without the form identified by FormID.
type ResponseRecord struct {
	ID        string
	FormID    string
	Submitted time.Time
	Answers   map[string]TypedValue
}

// FormLookup loads a form by id. Implementations return ErrFormNotFound (or an
// error wrapping it) for unknown ids.
type FormLookup interface {
	FindByID(ctx context.Context, id string) (*FormSchema, error)
}

// FormLookupFunc adapts a function to FormLookup.
type FormLookupFunc func(ctx context.Context, id string) (*FormSchema, error)

func (fn FormLookupFunc) FindByID(ctx context.Context, id string) (*FormSchema, error) {
	return fn(ctx, id)
}

// Validate loads the referenced form through lookup and validates the answers
// against it. Lookup errors are returned unchanged so ErrFormNotFound stays
// distinguishable from validation failures.
func (r ResponseRecord) Validate(ctx context.Context, lookup FormLookup) error {
	form, err := lookup.FindByID(ctx, r.FormID)
	if err != nil {
		return err
	}
	if form == nil {
		return ErrFormNotFound
	}
	return r.ValidateAgainst(*form)
}

// ValidateAgainst checks the answers against an already loaded form. Fields are
// visited in form order and the first failure wins.
func (r ResponseRecord) ValidateAgainst(form FormSchema) error {
	for _, field := range form.Fields {
		answer, answered := r.Answers[field.Name]
		if field.Required && !answered {
			return responseErrorf("Required field %s does not have an answer.", field.Name)
		}

		for _, dep := range field.DependsOn {
			actual, ok := r.Answers[dep.Field]
			if !ok || !dep.Value.Equal(actual) {
				return responseErrorf("Dependent field %s has invalid value %s.", dep.Field, displayAnswer(actual, ok))
			}
		}

		if len(field.AllowedValues) != 0 && (!answered || !field.IsAllowed(answer)) {
			return responseErrorf("%s is not an allowed value for field %s.", displayAnswer(answer, answered), field.Name)
		}
	}
	return nil
}

// displayAnswer renders an absent answer as an empty string.
func displayAnswer(value TypedValue, present bool) string {
	if !present {
		return ""
	}
	return value.String()
}

// ValidateResponse is the entry point used before a response is persisted.
func ValidateResponse(ctx context.Context, response ResponseRecord, lookup FormLookup) error {
	return response.Validate(ctx, lookup)
}
