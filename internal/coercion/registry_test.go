package coercion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
)

const fixture = `
coercions:
  - from: array<object>
    to: array<string>
    mapping: transform.flatten_titles
  - from: number
    to: string
    mapping: transform.stringify
`

func TestLoadAndLookup(t *testing.T) {
	reg, err := LoadBytes("coercions.yaml", []byte(fixture))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	rule, ok := reg.Lookup(ir.TArray{Elem: ir.TObject{}}, ir.TArray{Elem: ir.TString{}})
	require.True(t, ok)
	assert.Equal(t, "transform.flatten_titles", rule.Mapping)

	_, ok = reg.Lookup(ir.TString{}, ir.TNumber{})
	assert.False(t, ok)
}

func TestLookupMatchesStructurally(t *testing.T) {
	reg, err := LoadBytes("coercions.yaml", []byte(fixture))
	require.NoError(t, err)

	// A structurally equal type built elsewhere must hit the same rule.
	from, err := ir.ParseType("array<object>")
	require.NoError(t, err)
	_, ok := reg.Lookup(from, ir.TArray{Elem: ir.TString{}})
	assert.True(t, ok)
}

func TestLoadRejectsBadType(t *testing.T) {
	_, err := LoadBytes("x.yaml", []byte("coercions:\n  - {from: wat, to: string, mapping: m}\n"))
	assert.Error(t, err)
}

func TestLoadRejectsMissingMapping(t *testing.T) {
	_, err := LoadBytes("x.yaml", []byte("coercions:\n  - {from: number, to: string}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping is required")
}

func TestLoadRejectsDuplicateRule(t *testing.T) {
	src := `
coercions:
  - {from: number, to: string, mapping: a}
  - {from: int, to: string, mapping: b}
`
	// "int" normalizes to number, so this is the same (from, to) pair.
	_, err := LoadBytes("x.yaml", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule")
}

func TestEmptyRegistry(t *testing.T) {
	_, ok := Empty().Lookup(ir.TNumber{}, ir.TString{})
	assert.False(t, ok)
}
