package domain

import "time"

// FormSchema is a titled, ordered collection of fields. A form owns its fields;
// they are never shared with another form.
type FormSchema struct {
	ID      string
	Created time.Time
	Title   string
	Fields  []FieldSchema
}

// Validate checks the form and its fields, returning the first failure.
// Field-level failures surface before the dependency closure check, which
// needs a complete pass over the fields.
func (f FormSchema) Validate() error {
	if f.Title == "" {
		return schemaErrorf("Title must be a non-empty string.")
	}
	if len(f.Fields) == 0 {
		return schemaErrorf("A form must have a non-empty set of fields.")
	}

	fieldNames := make(map[string]struct{}, len(f.Fields))
	dependedFields := make([]string, 0)
	for _, field := range f.Fields {
		if err := field.Validate(); err != nil {
			return err
		}
		if _, dup := fieldNames[field.Name]; dup {
			return schemaErrorf("All the fields in a form must have unique names.")
		}
		fieldNames[field.Name] = struct{}{}
		for _, dep := range field.DependsOn {
			dependedFields = append(dependedFields, dep.Field)
		}
	}

	for _, name := range dependedFields {
		if _, ok := fieldNames[name]; !ok {
			return schemaErrorf("All dependent fields must refer to valid field names in the form.")
		}
	}

	return nil
}

// Field returns the field called name.
func (f FormSchema) Field(name string) (FieldSchema, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSchema{}, false
}

// ValidateForm is the entry point used before a form is persisted.
func ValidateForm(form FormSchema) error {
	return form.Validate()
}
