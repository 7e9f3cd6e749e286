// Package variant implements the typed configuration value carried over IPC
// and persisted to disk: a closed tagged union over string, int64, float64,
// and bool. Arrays, objects, and null are rejected at every boundary rather
// than silently coerced.
package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/c360/configbroker/errors"
)

// Kind identifies which scalar type a Value holds.
type Kind int

// Supported value kinds. KindUnset is the zero value of an uninitialized Value.
const (
	KindUnset Kind = iota
	KindString
	KindInt
	KindDouble
	KindBool
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindUnset:
		return "unset"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a closed tagged union over the supported scalar types.
// The zero Value is unset and rejected by the store.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
}

// String creates a string Value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int creates an int64 Value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double creates a float64 Value
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// Bool creates a bool Value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the kind tag of the value
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether the value holds one of the supported scalar types
func (v Value) IsSet() bool { return v.kind != KindUnset }

// StringVal returns the string payload. ok is false on kind mismatch.
func (v Value) StringVal() (val string, ok bool) {
	return v.s, v.kind == KindString
}

// IntVal returns the int64 payload. ok is false on kind mismatch.
func (v Value) IntVal() (val int64, ok bool) {
	return v.i, v.kind == KindInt
}

// DoubleVal returns the float64 payload. ok is false on kind mismatch.
func (v Value) DoubleVal() (val float64, ok bool) {
	return v.f, v.kind == KindDouble
}

// BoolVal returns the bool payload. ok is false on kind mismatch.
func (v Value) BoolVal() (val bool, ok bool) {
	return v.b, v.kind == KindBool
}

// Interface returns the payload as an untyped scalar, or nil when unset
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindDouble:
		return v.f
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two values have the same kind and payload
func (v Value) Equal(other Value) bool {
	return v == other
}

// String implements fmt.Stringer for logging
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<unset>"
	}
}

// FromAny converts a decoded generic scalar into a Value. Integral float64
// inputs (the default JSON number decoding) become KindInt so that a value
// written as 1000 round-trips as an integer. Non-scalar inputs fail with
// ErrUnsupportedType.
func FromAny(raw any) (Value, error) {
	switch val := raw.(type) {
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int64:
		return Int(val), nil
	case int:
		return Int(int64(val)), nil
	case float64:
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Double(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return Value{}, errors.WrapInvalid(
				fmt.Errorf("%w: malformed number %q", errors.ErrParse, val.String()),
				"Value", "FromAny", "parse number")
		}
		return Double(f), nil
	default:
		return Value{}, errors.WrapInvalid(
			fmt.Errorf("%w: %T", errors.ErrUnsupportedType, raw),
			"Value", "FromAny", "convert scalar")
	}
}

// MarshalJSON encodes the value as its bare scalar
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindUnset {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unset value", errors.ErrUnsupportedType),
			"Value", "MarshalJSON", "encode value")
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a bare JSON scalar into the matching kind.
// Arrays, objects, and null fail with ErrUnsupportedType.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrParse, err),
			"Value", "UnmarshalJSON", "decode value")
	}

	if raw == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: null", errors.ErrUnsupportedType),
			"Value", "UnmarshalJSON", "decode value")
	}

	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes the value as its bare scalar
func (v Value) MarshalYAML() (any, error) {
	if v.kind == KindUnset {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unset value", errors.ErrUnsupportedType),
			"Value", "MarshalYAML", "encode value")
	}
	return v.Interface(), nil
}

// UnmarshalYAML decodes a YAML scalar node into the matching kind.
// Sequences, mappings, and null fail with ErrUnsupportedType.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.WrapInvalid(
			fmt.Errorf("%w: yaml %s node", errors.ErrUnsupportedType, yamlKindName(node.Kind)),
			"Value", "UnmarshalYAML", "decode value")
	}

	switch node.Tag {
	case "!!str":
		*v = String(node.Value)
	case "!!int":
		i, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrParse, err),
				"Value", "UnmarshalYAML", "parse int")
		}
		*v = Int(i)
	case "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrParse, err),
				"Value", "UnmarshalYAML", "parse float")
		}
		*v = Double(f)
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrParse, err),
				"Value", "UnmarshalYAML", "parse bool")
		}
		*v = Bool(b)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: yaml tag %s", errors.ErrUnsupportedType, node.Tag),
			"Value", "UnmarshalYAML", "decode value")
	}
	return nil
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "unknown"
	}
}

// Map is the in-memory key/value representation of one application's
// configuration. Keys are unique; insertion order is irrelevant.
type Map map[string]Value

// UnmarshalYAML decodes a YAML mapping of scalars. Each value node goes
// through Value.UnmarshalYAML explicitly: the yaml decoder resolves
// null-tagged nodes to the zero Value on its own without ever consulting
// the unmarshaler, so a plain map decode would admit null as an unset entry.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.WrapInvalid(
			fmt.Errorf("%w: yaml %s document", errors.ErrParse, yamlKindName(node.Kind)),
			"Map", "UnmarshalYAML", "decode document")
	}

	out := make(Map, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrParse, err),
				"Map", "UnmarshalYAML", "decode key")
		}

		var value Value
		if err := value.UnmarshalYAML(node.Content[i+1]); err != nil {
			return err
		}
		out[key] = value
	}

	*m = out
	return nil
}

// Clone returns an independent copy of the map. Value is a value type, so a
// per-entry copy is a deep copy.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
