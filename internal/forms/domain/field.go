package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// FieldType is the kind of question a field asks.
type FieldType int

const (
	FieldTypeNone FieldType = iota
	FieldTypeText
	FieldTypeEmail
	FieldTypeSelect
	FieldTypeBoolean
	FieldTypeFile
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeNone:    "None",
	FieldTypeText:    "Text",
	FieldTypeEmail:   "Email",
	FieldTypeSelect:  "Select",
	FieldTypeBoolean: "Boolean",
	FieldTypeFile:    "File",
}

// expectedValueKinds maps each concrete field type to the kind its allowed
// values and answers must have. File answers are opaque string references.
var expectedValueKinds = map[FieldType]ValueKind{
	FieldTypeText:    KindString,
	FieldTypeEmail:   KindString,
	FieldTypeSelect:  KindString,
	FieldTypeBoolean: KindBoolean,
	FieldTypeFile:    KindString,
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ExpectedKind returns the value kind required for t. ok is false for None and
// unknown types.
func (t FieldType) ExpectedKind() (ValueKind, bool) {
	kind, ok := expectedValueKinds[t]
	return kind, ok
}

// ParseFieldType resolves a type name case-insensitively. An empty name is None.
func ParseFieldType(name string) (FieldType, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return FieldTypeNone, nil
	}
	for t, candidate := range fieldTypeNames {
		if strings.EqualFold(candidate, trimmed) {
			return t, nil
		}
	}
	return FieldTypeNone, fmt.Errorf("unknown field type %q", trimmed)
}

// Dependency makes a field applicable only when another field has Value.
type Dependency struct {
	Field string
	Value TypedValue
}

// FieldSchema describes one question of a form.
type FieldSchema struct {
	ID            string
	Name          string
	Type          FieldType
	Required      bool
	AllowedValues []TypedValue
	// DependsOn keeps the declared order so response validation reports the
	// same failing dependency every time.
	DependsOn []Dependency
}

// Validate checks the field in isolation and returns the first failure.
func (f FieldSchema) Validate() error {
	if f.Name == "" {
		return schemaErrorf("Name must be a non-empty string.")
	}

	expected, ok := f.Type.ExpectedKind()
	if !ok {
		return schemaErrorf("None is not a valid field type.")
	}

	for _, value := range f.AllowedValues {
		if value.Kind() != expected {
			return schemaErrorf("All AllowedValues for a %s field must be valid %s objects.", f.Type, expected)
		}
	}

	seen := make(map[string]struct{}, len(f.DependsOn))
	for _, dep := range f.DependsOn {
		if _, dup := seen[dep.Field]; dup {
			return schemaErrorf("Fields can only be in DependsOn once.")
		}
		seen[dep.Field] = struct{}{}
	}

	switch f.Type {
	case FieldTypeSelect:
		if len(f.AllowedValues) == 0 {
			return schemaErrorf("A Select field must have a non-empty set of AllowedValues.")
		}
	case FieldTypeEmail:
		for _, value := range f.AllowedValues {
			address, _ := value.Str()
			if !IsValidEmail(address) {
				return schemaErrorf("All AllowedValues must be valid emails for an Email field.")
			}
		}
	}

	return nil
}

// IsAllowed reports whether value is one of the field's allowed values.
func (f FieldSchema) IsAllowed(value TypedValue) bool {
	for _, allowed := range f.AllowedValues {
		if allowed.Equal(value) {
			return true
		}
	}
	return false
}

// IsValidEmail accepts a bare local-part@domain address whose domain labels
// are all non-empty. Display-name forms such as "A <a@b.com>" are rejected.
func IsValidEmail(value string) bool {
	if value == "" || len(value) > 254 {
		return false
	}
	parsed, err := mail.ParseAddress(value)
	if err != nil || parsed.Address != value {
		return false
	}
	at := strings.LastIndex(value, "@")
	if at <= 0 || at == len(value)-1 {
		return false
	}
	for _, label := range strings.Split(value[at+1:], ".") {
		if label == "" {
			return false
		}
	}
	return true
}
