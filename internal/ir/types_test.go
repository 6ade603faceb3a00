package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeScalars(t *testing.T) {
	cases := map[string]Type{
		"string":  TString{},
		"number":  TNumber{},
		"int":     TNumber{},
		"boolean": TBool{},
		"bool":    TBool{},
		"object":  TObject{},
		"unknown": TUnknown{},
		"any":     TUnknown{},
	}
	for ann, want := range cases {
		got, err := ParseType(ann)
		require.NoError(t, err, "annotation %q", ann)
		assert.Equal(t, want, got, "annotation %q", ann)
	}
}

func TestParseTypeComposite(t *testing.T) {
	got, err := ParseType("array<string>")
	require.NoError(t, err)
	assert.Equal(t, TArray{Elem: TString{}}, got)

	got, err = ParseType("nullable<map<string, number>>")
	require.NoError(t, err)
	assert.Equal(t, TNullable{Elem: TMap{Key: TString{}, Value: TNumber{}}}, got)

	got, err = ParseType("union<string, array<number>>")
	require.NoError(t, err)
	assert.Equal(t, TUnion{Alts: []Type{TString{}, TArray{Elem: TNumber{}}}}, got)
}

func TestParseTypeWhitespace(t *testing.T) {
	got, err := ParseType("  array< string >  ")
	require.NoError(t, err)
	assert.Equal(t, TArray{Elem: TString{}}, got)
}

func TestParseTypeErrors(t *testing.T) {
	invalid := []string{
		"",
		"frobnicator",
		"array<>",
		"array<string,string>",
		"map<string>",
		"union<string>",
		"array<string",
		"array<string>>",
		"object{title}",
		"object{:string}",
		"object{a:string,a:number}",
	}
	for _, ann := range invalid {
		_, err := ParseType(ann)
		assert.Error(t, err, "annotation %q should not parse", ann)
	}
}

func TestTypeStringRoundTrip(t *testing.T) {
	annotations := []string{
		"string",
		"number",
		"boolean",
		"object",
		"unknown",
		"array<string>",
		"nullable<number>",
		"map<string,boolean>",
		"union<string,number>",
		"array<map<string,array<number>>>",
		"object{score:number,title:string}",
		"array<object{nested:object{leaf:boolean}}>",
	}
	for _, ann := range annotations {
		parsed, err := ParseType(ann)
		require.NoError(t, err)
		assert.Equal(t, ann, TypeString(parsed))
	}
}

func TestTypeStringObjectFieldsSorted(t *testing.T) {
	obj := TObject{Fields: map[string]Type{
		"zeta":  TString{},
		"alpha": TNumber{},
	}}
	assert.Equal(t, "object{alpha:number,zeta:string}", TypeString(obj))
}

func TestIsAmbiguous(t *testing.T) {
	assert.True(t, IsAmbiguous(TUnknown{}))
	assert.True(t, IsAmbiguous(TUnion{Alts: []Type{TString{}, TNumber{}}}))
	assert.True(t, IsAmbiguous(TArray{Elem: TUnknown{}}))
	assert.True(t, IsAmbiguous(TNullable{Elem: TUnknown{}}))
	assert.True(t, IsAmbiguous(TMap{Key: TString{}, Value: TUnknown{}}))

	assert.False(t, IsAmbiguous(TString{}))
	assert.False(t, IsAmbiguous(TArray{Elem: TObject{}}))
	assert.False(t, IsAmbiguous(TMap{Key: TString{}, Value: TNumber{}}))
}
