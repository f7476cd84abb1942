package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCount_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		present bool
	}{
		{"int", `7`, "7", true},
		{"zero", `0`, "0", true},
		{"integral float", `3.0`, "3", true},
		{"numeric string", `"12"`, "12", true},
		{"null", `null`, "", false},
		{"empty string", `""`, "", false},
		{"dash", `"-"`, "", false},
		{"nan string", `"NaN"`, "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var c Count
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.want, c.String())
			assert.Equal(t, tt.present, c.Present())
		})
	}
}

func TestCount_UnmarshalJSONErrors(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`-1`, `2.5`, `"abc"`, `true`} {
		var c Count
		assert.Error(t, json.Unmarshal([]byte(in), &c), in)
	}
}

func TestCount_UnmarshalJSONOverflow(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`1e30`, `"1e30"`, `99999999999999999999`} {
		var c Count
		err := json.Unmarshal([]byte(in), &c)
		require.Error(t, err, in)
		assert.Contains(t, err.Error(), "overflows int", in)
		assert.False(t, c.Present(), in)
	}
}

func TestCount_MarshalJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		A Count `json:"a"`
		B Count `json:"b"`
	}{A: CountOf(4), B: NoCount()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":4,"b":null}`, string(b))
}

func TestCount_MarshalYAML(t *testing.T) {
	t.Parallel()

	b, err := yaml.Marshal(map[string]Count{"a": CountOf(2), "b": NoCount()})
	require.NoError(t, err)
	assert.Equal(t, "a: 2\nb: null\n", string(b))
}

func TestCount_Int(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, NoCount().Int())
	assert.Equal(t, 5, CountOf(5).Int())
}
