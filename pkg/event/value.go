package event

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the scalar types allowed in event properties.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a scalar property value: string, number, or boolean. Nested
// objects, arrays, and nulls are rejected at the validation boundary.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool creates a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's scalar kind.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the underlying string; ok is false for non-string values.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the underlying number; ok is false for non-numeric values.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the underlying boolean; ok is false for non-boolean values.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// Interface returns the value as a plain interface{} for driver binding.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// Text returns a string rendering regardless of kind, used when flattening
// properties into the store's string-keyed property columns.
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// MarshalJSON encodes the scalar directly, without a wrapper object.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts JSON strings, numbers, and booleans. Anything else
// (null, object, array) is a validation failure.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = String(t)
	case float64:
		*v = Number(t)
	case bool:
		*v = Bool(t)
	default:
		return fmt.Errorf("property values must be string, number, or boolean, got %T", raw)
	}
	return nil
}
