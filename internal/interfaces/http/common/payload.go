package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sngm3741/ashby-forms/api/internal/forms/application"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
	"gopkg.in/yaml.v3"
)

// ValueList is a list of allowed values. Only strings and booleans decode.
type ValueList []domain.TypedValue

func (l *ValueList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: allowedValues must be a list", node.Line)
	}
	values := make(ValueList, 0, len(node.Content))
	for _, item := range node.Content {
		value, err := valueFromYAML(item)
		if err != nil {
			return err
		}
		values = append(values, value)
	}
	*l = values
	return nil
}

// DependsOn keeps dependencies in the order they were written, duplicates
// included, so validation can report them.
type DependsOn []domain.Dependency

// UnmarshalJSON accepts an object ({"field": value, ...}) or a list of
// {"field", "value"} pairs.
func (d *DependsOn) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	switch token {
	case nil:
		*d = nil
		return nil
	case json.Delim('['):
		var pairs []struct {
			Field string            `json:"field"`
			Value domain.TypedValue `json:"value"`
		}
		if err := json.Unmarshal(data, &pairs); err != nil {
			return err
		}
		deps := make(DependsOn, 0, len(pairs))
		for _, pair := range pairs {
			deps = append(deps, domain.Dependency{Field: pair.Field, Value: pair.Value})
		}
		*d = deps
		return nil
	case json.Delim('{'):
	default:
		return fmt.Errorf("dependsOn must be an object")
	}

	deps := make(DependsOn, 0)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("dependsOn key must be a string")
		}
		var value domain.TypedValue
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("dependsOn %s: %w", key, err)
		}
		deps = append(deps, domain.Dependency{Field: key, Value: value})
	}
	if _, err := decoder.Token(); err != nil {
		return err
	}
	*d = deps
	return nil
}

// MarshalJSON writes the dependencies as an object in declared order.
func (d DependsOn) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, dep := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(dep.Field)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(dep.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: dependsOn must be a mapping", node.Line)
	}
	deps := make(DependsOn, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, valueNode := node.Content[i], node.Content[i+1]
		value, err := valueFromYAML(valueNode)
		if err != nil {
			return fmt.Errorf("dependsOn %s: %w", key.Value, err)
		}
		deps = append(deps, domain.Dependency{Field: key.Value, Value: value})
	}
	*d = deps
	return nil
}

func valueFromYAML(node *yaml.Node) (domain.TypedValue, error) {
	if node.Kind != yaml.ScalarNode {
		return domain.TypedValue{}, fmt.Errorf("line %d: value must be a string or a boolean", node.Line)
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return domain.TypedValue{}, err
	}
	value, err := domain.ValueFromAny(raw)
	if err != nil {
		return domain.TypedValue{}, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return value, nil
}

// FieldPayload is the wire form of a field definition.
type FieldPayload struct {
	Name          string    `json:"name" yaml:"name"`
	Type          string    `json:"type,omitempty" yaml:"type"`
	Required      bool      `json:"required" yaml:"required"`
	AllowedValues ValueList `json:"allowedValues,omitempty" yaml:"allowedValues"`
	DependsOn     DependsOn `json:"dependsOn,omitempty" yaml:"dependsOn"`
}

// FormPayload is the wire form of a form definition, used by POST
// /admin/forms and by seed files.
type FormPayload struct {
	Title  string         `json:"title" yaml:"title"`
	Fields []FieldPayload `json:"fields" yaml:"fields"`
}

// ToCommand resolves type names. An unknown type name is a malformed request,
// not a validation failure.
func (p FormPayload) ToCommand() (application.CreateFormCommand, error) {
	cmd := application.CreateFormCommand{
		Title:  p.Title,
		Fields: make([]application.FieldCommand, 0, len(p.Fields)),
	}
	for i, field := range p.Fields {
		fieldType, err := domain.ParseFieldType(field.Type)
		if err != nil {
			return application.CreateFormCommand{}, fmt.Errorf("fields[%d]: %w", i, err)
		}
		cmd.Fields = append(cmd.Fields, application.FieldCommand{
			Name:          field.Name,
			Type:          fieldType,
			Required:      field.Required,
			AllowedValues: []domain.TypedValue(field.AllowedValues),
			DependsOn:     []domain.Dependency(field.DependsOn),
		})
	}
	return cmd, nil
}

// FieldResponse is a stored field as returned to clients.
type FieldResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Type          string              `json:"type"`
	Required      bool                `json:"required"`
	AllowedValues []domain.TypedValue `json:"allowedValues"`
	DependsOn     DependsOn           `json:"dependsOn"`
}

// FormResponse is a stored form as returned to clients.
type FormResponse struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Created time.Time       `json:"created"`
	Fields  []FieldResponse `json:"fields"`
}

// ResponseRecordResponse is a stored response as returned to clients.
type ResponseRecordResponse struct {
	ID        string                       `json:"id"`
	FormID    string                       `json:"formId"`
	Submitted time.Time                    `json:"submitted"`
	Answers   map[string]domain.TypedValue `json:"answers"`
}

// NewFormResponse converts a form, rendering timestamps in loc when given.
func NewFormResponse(form domain.FormSchema, loc *time.Location) FormResponse {
	fields := make([]FieldResponse, 0, len(form.Fields))
	for _, field := range form.Fields {
		allowed := field.AllowedValues
		if allowed == nil {
			allowed = []domain.TypedValue{}
		}
		fields = append(fields, FieldResponse{
			ID:            field.ID,
			Name:          field.Name,
			Type:          field.Type.String(),
			Required:      field.Required,
			AllowedValues: allowed,
			DependsOn:     DependsOn(field.DependsOn),
		})
	}
	return FormResponse{
		ID:      form.ID,
		Title:   form.Title,
		Created: inLocation(form.Created, loc),
		Fields:  fields,
	}
}

func NewResponseRecordResponse(response domain.ResponseRecord, loc *time.Location) ResponseRecordResponse {
	answers := response.Answers
	if answers == nil {
		answers = map[string]domain.TypedValue{}
	}
	return ResponseRecordResponse{
		ID:        response.ID,
		FormID:    response.FormID,
		Submitted: inLocation(response.Submitted, loc),
		Answers:   answers,
	}
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}
