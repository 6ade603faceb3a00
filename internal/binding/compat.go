package binding

import "github.com/roach88/warden/internal/ir"

// Compatible reports whether a value of type actual can flow into a slot
// expecting expected. Unknown is compatible in both directions; objects
// use width subtyping, so an actual with extra fields still fits.
func Compatible(expected, actual ir.Type) bool {
	if _, ok := expected.(ir.TUnknown); ok {
		return true
	}
	if _, ok := actual.(ir.TUnknown); ok {
		return true
	}

	// A union value fits only if every branch it might be fits.
	if au, ok := actual.(ir.TUnion); ok {
		for _, alt := range au.Alts {
			if !Compatible(expected, alt) {
				return false
			}
		}
		return true
	}

	switch e := expected.(type) {
	case ir.TString:
		_, ok := actual.(ir.TString)
		return ok
	case ir.TNumber:
		_, ok := actual.(ir.TNumber)
		return ok
	case ir.TBool:
		_, ok := actual.(ir.TBool)
		return ok
	case ir.TNullable:
		if an, ok := actual.(ir.TNullable); ok {
			return Compatible(e.Elem, an.Elem)
		}
		return Compatible(e.Elem, actual)
	case ir.TArray:
		a, ok := actual.(ir.TArray)
		return ok && Compatible(e.Elem, a.Elem)
	case ir.TMap:
		a, ok := actual.(ir.TMap)
		return ok && Compatible(e.Key, a.Key) && Compatible(e.Value, a.Value)
	case ir.TObject:
		a, ok := actual.(ir.TObject)
		if !ok {
			return false
		}
		for name, ft := range e.Fields {
			at, present := a.Fields[name]
			if !present || !Compatible(ft, at) {
				return false
			}
		}
		return true
	case ir.TUnion:
		for _, alt := range e.Alts {
			if Compatible(alt, actual) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
