package binding

import (
	"fmt"
	"strings"

	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ir"
)

// Expansion bounds. Cycles are cut by the visited set; these ceilings cut
// alias-bomb fan-out, where acyclic pointer sharing multiplies elements.
const (
	maxResolveDepth    = 32
	maxResolvedElement = 10000
)

// FragmentSource supplies shared schema fragments by name. The source
// value itself doubles as the document identity for the visited set.
type FragmentSource interface {
	SchemaFragment(name string) (*ir.Schema, bool)
}

// resolveErr distinguishes pointer-shape failures from expansion-bound
// failures; callers map them to different diagnostic codes.
type resolveErr struct {
	code    string // diag code
	message string
}

func (e *resolveErr) Error() string { return e.message }

type visitKey struct {
	source  FragmentSource
	pointer string
}

// resolver expands one schema tree. Not safe for reuse across calls.
type resolver struct {
	source   FragmentSource
	visiting map[visitKey]bool // pointers on the current path
	elements int
}

func newResolver(source FragmentSource) *resolver {
	return &resolver{source: source, visiting: make(map[visitKey]bool)}
}

// lower converts a schema fragment into an ir.Type, expanding $ref
// pointers as it goes.
func (r *resolver) lower(s *ir.Schema, depth int) (ir.Type, error) {
	if s == nil {
		return ir.TUnknown{}, nil
	}
	if depth > maxResolveDepth {
		return nil, &resolveErr{code: diag.CodeSchemaValidationFailed,
			message: fmt.Sprintf("schema expansion exceeded depth ceiling (%d)", maxResolveDepth)}
	}
	r.elements++
	if r.elements > maxResolvedElement {
		return nil, &resolveErr{code: diag.CodeSchemaValidationFailed,
			message: fmt.Sprintf("schema expansion exceeded element ceiling (%d)", maxResolvedElement)}
	}

	if s.Ref != "" {
		merged, cycle, err := r.expandRef(s, depth)
		if err != nil {
			return nil, err
		}
		if cycle {
			// A pointer already visited on the current path is not
			// re-expanded; the cycle collapses to unknown.
			return r.wrapNullable(s, ir.TUnknown{}), nil
		}
		defer r.leaveRef(s.Ref)
		t, err := r.lower(merged, depth+1)
		if err != nil {
			return nil, err
		}
		return r.wrapNullable(s, t), nil
	}

	var t ir.Type
	switch s.Kind {
	case "string":
		t = ir.TString{}
	case "number":
		t = ir.TNumber{}
	case "boolean":
		t = ir.TBool{}
	case "unknown", "":
		if len(s.OneOf) > 0 {
			return r.lowerUnion(s, depth)
		}
		t = ir.TUnknown{}
	case "union":
		return r.lowerUnion(s, depth)
	case "map":
		value, err := r.lower(s.Values, depth+1)
		if err != nil {
			return nil, err
		}
		t = ir.TMap{Key: ir.TString{}, Value: value}
	case "array":
		if s.Items == nil {
			t = ir.TArray{Elem: ir.TUnknown{}}
		} else {
			elem, err := r.lower(s.Items, depth+1)
			if err != nil {
				return nil, err
			}
			t = ir.TArray{Elem: elem}
		}
	case "object":
		if len(s.Properties) == 0 {
			t = ir.TObject{}
		} else {
			fields := make(map[string]ir.Type, len(s.Properties))
			for name, prop := range s.Properties {
				ft, err := r.lower(prop, depth+1)
				if err != nil {
					return nil, err
				}
				fields[name] = ft
			}
			t = ir.TObject{Fields: fields}
		}
	default:
		return nil, &resolveErr{code: diag.CodeSchemaValidationFailed,
			message: fmt.Sprintf("schema has unknown kind %q", s.Kind)}
	}

	return r.wrapNullable(s, t), nil
}

func (r *resolver) lowerUnion(s *ir.Schema, depth int) (ir.Type, error) {
	if len(s.OneOf) == 0 {
		return nil, &resolveErr{code: diag.CodeSchemaValidationFailed,
			message: "union schema has no one_of branches"}
	}
	alts := make([]ir.Type, len(s.OneOf))
	for i, branch := range s.OneOf {
		bt, err := r.lower(branch, depth+1)
		if err != nil {
			return nil, err
		}
		alts[i] = bt
	}
	return r.wrapNullable(s, ir.TUnion{Alts: alts}), nil
}

func (r *resolver) wrapNullable(s *ir.Schema, t ir.Type) ir.Type {
	if s.Nullable {
		return ir.TNullable{Elem: t}
	}
	return t
}

// expandRef resolves a $ref pointer and merges local keys over the
// referent. Returns cycle=true when the pointer is already being expanded
// on the current path. On a non-cycle return the pointer is marked
// visiting; the caller must leaveRef afterwards.
func (r *resolver) expandRef(s *ir.Schema, depth int) (merged *ir.Schema, cycle bool, err error) {
	name, perr := parsePointer(s.Ref)
	if perr != nil {
		return nil, false, perr
	}

	key := visitKey{source: r.source, pointer: s.Ref}
	if r.visiting[key] {
		return nil, true, nil
	}

	if r.source == nil {
		return nil, false, &resolveErr{code: diag.CodeSchemaNotFound,
			message: fmt.Sprintf("schema fragment %q referenced but no fragment source configured", name)}
	}
	referent, ok := r.source.SchemaFragment(name)
	if !ok {
		return nil, false, &resolveErr{code: diag.CodeSchemaNotFound,
			message: fmt.Sprintf("schema fragment %q not found", name)}
	}

	r.visiting[key] = true
	return mergeSchemas(referent, s), false, nil
}

func (r *resolver) leaveRef(pointer string) {
	delete(r.visiting, visitKey{source: r.source, pointer: pointer})
}

// mergeSchemas lays local keys over the referent: every non-zero local
// field wins, the rest comes from the referent. The $ref itself is
// consumed by the merge.
func mergeSchemas(referent, local *ir.Schema) *ir.Schema {
	out := *referent
	out.Ref = ""
	if local.Kind != "" {
		out.Kind = local.Kind
	}
	if local.Properties != nil {
		out.Properties = local.Properties
	}
	if local.Items != nil {
		out.Items = local.Items
	}
	if local.Values != nil {
		out.Values = local.Values
	}
	if local.OneOf != nil {
		out.OneOf = local.OneOf
	}
	if local.Nullable {
		out.Nullable = false // caller wraps from the local schema
	}
	if local.Required != nil {
		out.Required = local.Required
	}
	return &out
}

// parsePointer accepts "#/schemas/<name>" pointers into the owning
// document's shared fragments.
func parsePointer(ref string) (string, error) {
	const prefix = "#/schemas/"
	if !strings.HasPrefix(ref, prefix) || len(ref) == len(prefix) {
		return "", &resolveErr{code: diag.CodeInvalidPointer,
			message: fmt.Sprintf("invalid schema pointer %q, expected #/schemas/<name>", ref)}
	}
	name := ref[len(prefix):]
	if strings.Contains(name, "/") {
		return "", &resolveErr{code: diag.CodeInvalidPointer,
			message: fmt.Sprintf("invalid schema pointer %q, nested pointers are not supported", ref)}
	}
	return name, nil
}

// LowerSchema resolves a schema fragment into an ir.Type using fragments
// from source. It is the package's entry point for one-off lowering;
// workflow checking shares one resolver per schema tree internally.
func LowerSchema(source FragmentSource, s *ir.Schema) (ir.Type, error) {
	return newResolver(source).lower(s, 0)
}
