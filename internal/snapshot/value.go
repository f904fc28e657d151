package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the scalar type of a configuration value.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a scalar configuration value: a bool, an integer or a string.
// The zero Value is the empty string.
type Value struct {
	kind Kind
	b    bool
	i    int64
	s    string
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports the scalar type held.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean held, or false for other kinds.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Int returns the integer held, or 0 for other kinds.
func (v Value) Int() int64 {
	if v.kind != KindInt {
		return 0
	}
	return v.i
}

// String formats the value the way a text input would show it.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return v.s
	}
}

// Interface returns the value as a plain Go bool, int64 or string.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	default:
		return v.s
	}
}

// Coerce converts v to kind k. The second result is false when the value
// has no sensible representation in k, for example "abc" as an integer.
func (v Value) Coerce(k Kind) (Value, bool) {
	if v.kind == k {
		return v, true
	}
	switch k {
	case KindBool:
		switch v.kind {
		case KindInt:
			return Bool(v.i != 0), true
		case KindString:
			switch strings.ToLower(strings.TrimSpace(v.s)) {
			case "true", "1", "on", "yes", "checked":
				return Bool(true), true
			case "false", "0", "off", "no", "":
				return Bool(false), true
			}
		}
		return Value{}, false

	case KindInt:
		switch v.kind {
		case KindBool:
			if v.b {
				return Int(1), true
			}
			return Int(0), true
		case KindString:
			n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
			if err != nil {
				return Value{}, false
			}
			return Int(n), true
		}
		return Value{}, false

	default:
		return String(v.String()), true
	}
}

// FromAny converts a decoded JSON scalar into a Value. Objects, arrays and
// null are rejected.
func FromAny(x any) (Value, bool) {
	switch t := x.(type) {
	case bool:
		return Bool(t), true
	case string:
		return String(t), true
	case int:
		return Int(int64(t)), true
	case int64:
		return Int(t), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < math.MaxInt64 {
			return Int(int64(t)), true
		}
		return String(strconv.FormatFloat(t, 'f', -1, 64)), true
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Int(n), true
		}
		return String(t.String()), true
	default:
		return Value{}, false
	}
}

// MarshalJSON encodes the value as a JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	parsed, ok := FromAny(x)
	if !ok {
		return fmt.Errorf("snapshot: %s is not a scalar", string(data))
	}
	*v = parsed
	return nil
}
