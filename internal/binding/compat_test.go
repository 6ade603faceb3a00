package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
)

func TestCompatible(t *testing.T) {
	cases := []struct {
		expected string
		actual   string
		want     bool
	}{
		{"string", "string", true},
		{"number", "number", true},
		{"boolean", "boolean", true},
		{"string", "number", false},
		{"number", "boolean", false},

		{"unknown", "string", true},
		{"string", "unknown", true},
		{"array<string>", "unknown", true},

		{"nullable<string>", "string", true},
		{"nullable<string>", "nullable<string>", true},
		{"string", "nullable<string>", false},
		{"nullable<string>", "nullable<number>", false},

		{"array<string>", "array<string>", true},
		{"array<string>", "array<number>", false},
		{"array<array<number>>", "array<array<number>>", true},
		{"array<string>", "string", false},

		{"map<string,number>", "map<string,number>", true},
		{"map<string,number>", "map<string,string>", false},
	}
	for _, tc := range cases {
		e, err := ir.ParseType(tc.expected)
		require.NoError(t, err, tc.expected)
		a, err := ir.ParseType(tc.actual)
		require.NoError(t, err, tc.actual)
		assert.Equal(t, tc.want, Compatible(e, a), "%s <- %s", tc.expected, tc.actual)
	}
}

func TestCompatibleObjectsWidthSubtyping(t *testing.T) {
	expected := ir.TObject{Fields: map[string]ir.Type{"title": ir.TString{}}}
	actual := ir.TObject{Fields: map[string]ir.Type{
		"title": ir.TString{},
		"score": ir.TNumber{},
	}}
	assert.True(t, Compatible(expected, actual))
	assert.False(t, Compatible(actual, expected))
}

func TestCompatibleUnions(t *testing.T) {
	strOrNum := ir.TUnion{Alts: []ir.Type{ir.TString{}, ir.TNumber{}}}

	// Any branch of an expected union may accept the value.
	assert.True(t, Compatible(strOrNum, ir.TString{}))
	assert.True(t, Compatible(strOrNum, ir.TNumber{}))
	assert.False(t, Compatible(strOrNum, ir.TBool{}))

	// Every branch a union value might be must fit the expectation.
	assert.True(t, Compatible(strOrNum, strOrNum))
	assert.False(t, Compatible(ir.TString{}, strOrNum))
}
