package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind identifies which payload a TypedValue carries.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBoolean
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// TypedValue is a closed variant over a string or a boolean. It is used for
// allowed values, dependency values and answers.
type TypedValue struct {
	kind ValueKind
	str  string
	b    bool
}

// StringValue wraps s.
func StringValue(s string) TypedValue {
	return TypedValue{kind: KindString, str: s}
}

// BoolValue wraps b.
func BoolValue(b bool) TypedValue {
	return TypedValue{kind: KindBoolean, b: b}
}

func (v TypedValue) Kind() ValueKind {
	return v.kind
}

// Str returns the string payload and whether the value is a string.
func (v TypedValue) Str() (string, bool) {
	return v.str, v.kind == KindString
}

// Bool returns the boolean payload and whether the value is a boolean.
func (v TypedValue) Bool() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// Equal reports whether both values have the same kind and payload.
func (v TypedValue) Equal(other TypedValue) bool {
	if v.kind != other.kind {
		return false
	}
	if v.kind == KindBoolean {
		return v.b == other.b
	}
	return v.str == other.str
}

// Any returns the underlying payload as a plain string or bool.
func (v TypedValue) Any() any {
	if v.kind == KindBoolean {
		return v.b
	}
	return v.str
}

// String renders the payload as it appears in validation messages.
func (v TypedValue) String() string {
	if v.kind == KindBoolean {
		return strconv.FormatBool(v.b)
	}
	return v.str
}

// ValueFromAny converts a decoded string or bool into a TypedValue.
func ValueFromAny(raw any) (TypedValue, error) {
	switch value := raw.(type) {
	case string:
		return StringValue(value), nil
	case bool:
		return BoolValue(value), nil
	case TypedValue:
		return value, nil
	default:
		return TypedValue{}, fmt.Errorf("unsupported value type %T: only strings and booleans are allowed", raw)
	}
}

func (v TypedValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *TypedValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("value must be a string or a boolean, got null")
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
