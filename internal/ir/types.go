package ir

import (
	"sort"
	"strings"
)

// Type is a sealed interface over the structural type grammar.
// Only TString, TNumber, TBool, TObject, TArray, TNullable, TMap, TUnion,
// and TUnknown implement it. Backends type-switch exhaustively; the marker
// method prevents external extensions.
type Type interface {
	typeNode() // Sealed - only types in this package implement it
}

// TString is the string scalar type.
type TString struct{}

func (TString) typeNode() {}

// TNumber is the numeric scalar type (integers and floats alike).
type TNumber struct{}

func (TNumber) typeNode() {}

// TBool is the boolean scalar type.
type TBool struct{}

func (TBool) typeNode() {}

// TObject is a structural object type with named fields.
// A nil or empty Fields map means "object with unknown shape".
type TObject struct {
	Fields map[string]Type
}

func (TObject) typeNode() {}

// TArray is a homogeneous array type.
type TArray struct {
	Elem Type
}

func (TArray) typeNode() {}

// TNullable wraps a type that may also be null.
type TNullable struct {
	Elem Type
}

func (TNullable) typeNode() {}

// TMap is a map with typed keys and values. Keys are almost always TString;
// the key slot exists so map<string,number> prints and compares precisely.
type TMap struct {
	Key   Type
	Value Type
}

func (TMap) typeNode() {}

// TUnion is an ordered set of alternative types.
type TUnion struct {
	Alts []Type
}

func (TUnion) typeNode() {}

// TUnknown is the top type: compatible with everything, carries no shape.
// Inference falls back to TUnknown when a schema gives no information.
type TUnknown struct{}

func (TUnknown) typeNode() {}

// TypeString renders a Type in the compact annotation grammar.
// The rendering is canonical: object fields are sorted by name, so equal
// types always print identically. FormatType(ParseType(s)) == s for every
// normalized annotation.
func TypeString(t Type) string {
	switch v := t.(type) {
	case TString:
		return "string"
	case TNumber:
		return "number"
	case TBool:
		return "boolean"
	case TUnknown:
		return "unknown"
	case TArray:
		return "array<" + TypeString(v.Elem) + ">"
	case TNullable:
		return "nullable<" + TypeString(v.Elem) + ">"
	case TMap:
		return "map<" + TypeString(v.Key) + "," + TypeString(v.Value) + ">"
	case TUnion:
		parts := make([]string, len(v.Alts))
		for i, alt := range v.Alts {
			parts[i] = TypeString(alt)
		}
		return "union<" + strings.Join(parts, ",") + ">"
	case TObject:
		if len(v.Fields) == 0 {
			return "object"
		}
		names := make([]string, 0, len(v.Fields))
		for name := range v.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + ":" + TypeString(v.Fields[name])
		}
		return "object{" + strings.Join(parts, ",") + "}"
	default:
		return "unknown"
	}
}

// IsAmbiguous reports whether a type gives inference nothing to check
// against: unknown, a union of alternatives, or an unshaped container of
// either. Bindings whose producer infers an ambiguous type require an
// explicit annotation.
func IsAmbiguous(t Type) bool {
	switch v := t.(type) {
	case TUnknown:
		return true
	case TUnion:
		return true
	case TNullable:
		return IsAmbiguous(v.Elem)
	case TArray:
		return IsAmbiguous(v.Elem)
	case TMap:
		return IsAmbiguous(v.Value)
	default:
		return false
	}
}
