package variant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/c360/configbroker/errors"
)

func TestValue_Accessors(t *testing.T) {
	s := String("hello")
	val, ok := s.StringVal()
	assert.True(t, ok)
	assert.Equal(t, "hello", val)
	_, ok = s.IntVal()
	assert.False(t, ok, "kind mismatch must not coerce")

	i := Int(42)
	iv, ok := i.IntVal()
	assert.True(t, ok)
	assert.Equal(t, int64(42), iv)
	_, ok = i.DoubleVal()
	assert.False(t, ok)

	d := Double(2.5)
	dv, ok := d.DoubleVal()
	assert.True(t, ok)
	assert.Equal(t, 2.5, dv)

	b := Bool(true)
	bv, ok := b.BoolVal()
	assert.True(t, ok)
	assert.True(t, bv)

	var zero Value
	assert.False(t, zero.IsSet())
	assert.Equal(t, KindUnset, zero.Kind())
	assert.Nil(t, zero.Interface())
}

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"string", `"Hey"`, String("Hey")},
		{"integer", `1000`, Int(1000)},
		{"negative integer", `-5`, Int(-5)},
		{"double", `3.14`, Double(3.14)},
		{"bool true", `true`, Bool(true)},
		{"bool false", `false`, Bool(false)},
		{"large integer", `9007199254740993`, Int(9007199254740993)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(test.input), &v))
			assert.True(t, v.Equal(test.expected),
				"expected %v (%s), got %v (%s)", test.expected, test.expected.Kind(), v, v.Kind())
		})
	}
}

func TestValue_UnmarshalJSON_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"null", `null`},
		{"array", `[1,2,3]`},
		{"object", `{"nested":true}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var v Value
			err := json.Unmarshal([]byte(test.input), &v)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrUnsupportedType)
			assert.False(t, v.IsSet(), "rejected input must leave the value unset")
		})
	}
}

func TestValue_JSONRoundTrip(t *testing.T) {
	values := []Value{String("Hey"), Int(500), Int(-5), Double(0.5), Bool(true)}
	for _, in := range values {
		data, err := json.Marshal(in)
		require.NoError(t, err)

		var out Value
		require.NoError(t, json.Unmarshal(data, &out))
		assert.True(t, in.Equal(out), "round trip changed %v -> %v", in, out)
	}
}

func TestValue_MarshalUnset(t *testing.T) {
	var v Value
	_, err := json.Marshal(v)
	assert.Error(t, err)
}

func TestValue_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Value
	}{
		{"string", `phrase`, String("phrase")},
		{"quoted number string", `"1000"`, String("1000")},
		{"integer", `1000`, Int(1000)},
		{"double", `0.25`, Double(0.25)},
		{"bool", `true`, Bool(true)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var v Value
			require.NoError(t, yaml.Unmarshal([]byte(test.input), &v))
			assert.True(t, v.Equal(test.expected),
				"expected %v (%s), got %v (%s)", test.expected, test.expected.Kind(), v, v.Kind())
		})
	}
}

func TestValue_UnmarshalYAML_Rejected(t *testing.T) {
	// Null documents never reach Value.UnmarshalYAML: the yaml decoder
	// resolves them to the zero Value itself. Null rejection is enforced at
	// the Map level, see TestMap_UnmarshalYAML_Rejected.
	tests := []struct {
		name  string
		input string
	}{
		{"sequence", "- a\n- b"},
		{"mapping", "nested:\n  x: 1"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var v Value
			err := yaml.Unmarshal([]byte(test.input), &v)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrUnsupportedType)
		})
	}
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(float64(1000))
	require.NoError(t, err)
	assert.Equal(t, Int(1000), v, "integral float64 becomes int")

	v, err = FromAny(float64(2.5))
	require.NoError(t, err)
	assert.Equal(t, Double(2.5), v)

	v, err = FromAny(json.Number("7"))
	require.NoError(t, err)
	assert.Equal(t, Int(7), v)

	_, err = FromAny([]any{1})
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)

	_, err = FromAny(map[string]any{"k": 1})
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)

	_, err = FromAny(nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestMap_Clone(t *testing.T) {
	original := Map{
		"Timeout":       Int(1000),
		"TimeoutPhrase": String("Hey"),
	}

	clone := original.Clone()
	clone["Timeout"] = Int(500)
	clone["Extra"] = Bool(true)

	assert.Equal(t, Int(1000), original["Timeout"], "mutating the clone must not affect the original")
	assert.NotContains(t, original, "Extra")
}

func TestMap_CloneNil(t *testing.T) {
	var m Map
	clone := m.Clone()
	assert.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestMap_UnmarshalYAMLDocument(t *testing.T) {
	doc := "Timeout: 1000\nTimeoutPhrase: Hey\nRatio: 0.5\nEnabled: true\n"

	var m Map
	require.NoError(t, yaml.Unmarshal([]byte(doc), &m))
	assert.Equal(t, Int(1000), m["Timeout"])
	assert.Equal(t, String("Hey"), m["TimeoutPhrase"])
	assert.Equal(t, Double(0.5), m["Ratio"])
	assert.Equal(t, Bool(true), m["Enabled"])
}

func TestMap_UnmarshalYAML_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"null value", "Timeout: null\n", errors.ErrUnsupportedType},
		{"tilde null value", "Timeout: ~\n", errors.ErrUnsupportedType},
		{"empty value", "Timeout:\n", errors.ErrUnsupportedType},
		{"sequence value", "Timeout:\n  - 1\n  - 2\n", errors.ErrUnsupportedType},
		{"mapping value", "Timeout:\n  nested: 1\n", errors.ErrUnsupportedType},
		{"non-mapping document", "- a\n- b\n", errors.ErrParse},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var m Map
			err := yaml.Unmarshal([]byte(test.input), &m)
			require.Error(t, err)
			assert.ErrorIs(t, err, test.want)
		})
	}
}

func TestMap_UnmarshalYAML_NoUnsetEntries(t *testing.T) {
	// A well-formed document never seeds the map with unset values
	var m Map
	require.NoError(t, yaml.Unmarshal([]byte("Timeout: 1000\n"), &m))
	for key, value := range m {
		assert.True(t, value.IsSet(), "key %q decoded as unset", key)
	}
}

func TestMap_UnmarshalJSONDocument(t *testing.T) {
	doc := `{"Timeout": 1000, "TimeoutPhrase": "Hey", "Ratio": 0.5, "Enabled": true}`

	var m Map
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	assert.Equal(t, Int(1000), m["Timeout"])
	assert.Equal(t, String("Hey"), m["TimeoutPhrase"])
	assert.Equal(t, Double(0.5), m["Ratio"])
	assert.Equal(t, Bool(true), m["Enabled"])
}
