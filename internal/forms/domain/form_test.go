package domain

import "testing"

func textField(name string, deps ...Dependency) FieldSchema {
	return FieldSchema{Name: name, Type: FieldTypeText, DependsOn: deps}
}

func TestFormSchemaValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    FormSchema
		wantErr string
	}{
		{
			name: "single boolean field",
			form: FormSchema{Title: "Survey", Fields: []FieldSchema{{Name: "age", Type: FieldTypeBoolean, Required: true}}},
		},
		{
			name:    "empty title",
			form:    FormSchema{Title: "", Fields: []FieldSchema{textField("a")}},
			wantErr: "Title must be a non-empty string.",
		},
		{
			name:    "no fields",
			form:    FormSchema{Title: "Survey"},
			wantErr: "A form must have a non-empty set of fields.",
		},
		{
			name:    "field error is propagated verbatim",
			form:    FormSchema{Title: "Survey", Fields: []FieldSchema{textField("a"), {Name: "b", Type: FieldTypeSelect}}},
			wantErr: "A Select field must have a non-empty set of AllowedValues.",
		},
		{
			name:    "duplicate names",
			form:    FormSchema{Title: "Survey", Fields: []FieldSchema{textField("a"), textField("b"), textField("a")}},
			wantErr: "All the fields in a form must have unique names.",
		},
		{
			name: "duplicate name reported before a later field error",
			form: FormSchema{Title: "Survey", Fields: []FieldSchema{
				textField("a"), textField("a"), {Name: "", Type: FieldTypeText},
			}},
			wantErr: "All the fields in a form must have unique names.",
		},
		{
			name: "field error reported before dangling dependency",
			form: FormSchema{Title: "Survey", Fields: []FieldSchema{
				textField("a", Dependency{Field: "missing", Value: StringValue("x")}),
				{Name: "b"},
			}},
			wantErr: "None is not a valid field type.",
		},
		{
			name: "dangling dependency",
			form: FormSchema{Title: "Survey", Fields: []FieldSchema{
				textField("a"),
				textField("b", Dependency{Field: "missing", Value: StringValue("x")}),
			}},
			wantErr: "All dependent fields must refer to valid field names in the form.",
		},
		{
			name: "dependency on a later field resolves",
			form: FormSchema{Title: "Survey", Fields: []FieldSchema{
				textField("a", Dependency{Field: "b", Value: StringValue("x")}),
				textField("b"),
			}},
		},
		{
			name: "self dependency resolves",
			form: FormSchema{Title: "Survey", Fields: []FieldSchema{
				textField("a", Dependency{Field: "a", Value: StringValue("x")}),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateForm(tt.form)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid form, got %q", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("expected validation error, got %#v", err)
			}
		})
	}
}

func TestFormSchemaValidateIsIdempotent(t *testing.T) {
	form := FormSchema{Title: "Survey", Fields: []FieldSchema{
		textField("b", Dependency{Field: "missing", Value: StringValue("x")}),
	}}
	first := form.Validate()
	second := form.Validate()
	if first == nil || second == nil || first.Error() != second.Error() {
		t.Fatalf("expected identical failures, got %v and %v", first, second)
	}
}

func TestFormSchemaField(t *testing.T) {
	form := FormSchema{Title: "Survey", Fields: []FieldSchema{textField("a"), textField("b")}}
	if field, ok := form.Field("b"); !ok || field.Name != "b" {
		t.Fatalf("expected field b, got %+v (ok=%v)", field, ok)
	}
	if _, ok := form.Field("c"); ok {
		t.Fatal("expected field c to be missing")
	}
}
