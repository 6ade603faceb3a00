package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReferenceBare(t *testing.T) {
	ref, err := ParseReference("${search_out}")
	require.NoError(t, err)
	assert.Equal(t, "search_out", ref.Producer)
	assert.Empty(t, ref.Path)
	assert.Nil(t, ref.Declared)
}

func TestParseReferenceDottedPath(t *testing.T) {
	ref, err := ParseReference("${search_out.results.title}")
	require.NoError(t, err)
	assert.Equal(t, "search_out", ref.Producer)
	assert.Equal(t, []string{"results", "title"}, ref.Path)
}

func TestParseReferenceWithAnnotation(t *testing.T) {
	ref, err := ParseReference("${search_out: array<string>}")
	require.NoError(t, err)
	assert.Equal(t, "search_out", ref.Producer)
	assert.Equal(t, TArray{Elem: TString{}}, ref.Declared)
	assert.Equal(t, "array<string>", ref.DeclaredText)
}

func TestParseReferencePathAndAnnotation(t *testing.T) {
	ref, err := ParseReference("${search_out.results: array<object>}")
	require.NoError(t, err)
	assert.Equal(t, []string{"results"}, ref.Path)
	assert.Equal(t, TArray{Elem: TObject{}}, ref.Declared)
}

func TestParseReferenceMalformed(t *testing.T) {
	for _, raw := range []string{
		"plain string",
		"${}",
		"${: string}",
		"${a..b}",
		"${out: }",
		"${out: array<}",
	} {
		_, err := ParseReference(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestIsReferenceExpr(t *testing.T) {
	assert.True(t, IsReferenceExpr("${x}"))
	assert.False(t, IsReferenceExpr("$x"))
	assert.False(t, IsReferenceExpr("${}"))
	assert.False(t, IsReferenceExpr("prefix ${x}"))
}
