package binding

import (
	"fmt"
	"strings"

	"github.com/roach88/warden/internal/ir"
)

// descend walks a dotted reference path through a resolved type. Array
// types are transparent to path access: a segment addressed against
// array<T> descends into T, so `${results.title}` works whether the
// producer emits one object or many.
func descend(t ir.Type, path []string) (ir.Type, error) {
	cur := t
	for i, seg := range path {
		next, err := descendOne(cur, seg)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", strings.Join(path[:i+1], "."), err)
		}
		cur = next
	}
	return cur, nil
}

func descendOne(t ir.Type, seg string) (ir.Type, error) {
	switch v := t.(type) {
	case ir.TUnknown:
		return ir.TUnknown{}, nil
	case ir.TNullable:
		return descendOne(v.Elem, seg)
	case ir.TArray:
		return descendOne(v.Elem, seg)
	case ir.TMap:
		return v.Value, nil
	case ir.TObject:
		f, ok := v.Fields[seg]
		if !ok {
			return nil, fmt.Errorf("field %q not present in %s", seg, ir.TypeString(t))
		}
		return f, nil
	case ir.TUnion:
		var alts []ir.Type
		for _, alt := range v.Alts {
			next, err := descendOne(alt, seg)
			if err != nil {
				continue
			}
			alts = append(alts, next)
		}
		switch len(alts) {
		case 0:
			return nil, fmt.Errorf("field %q not present in any branch of %s", seg, ir.TypeString(t))
		case 1:
			return alts[0], nil
		default:
			return ir.TUnion{Alts: alts}, nil
		}
	default:
		return nil, fmt.Errorf("cannot descend into %s with field %q", ir.TypeString(t), seg)
	}
}

// producerTypes builds the name-to-type environment a workflow's bindings
// resolve against: every step's store_as mapped to the lowered output
// schema of its capability, plus every declared workflow input. Steps
// whose capability declares no output schema produce unknown.
type environment struct {
	types map[string]ir.Type
	order map[string]int // step index of the producing step, -1 for workflow inputs
}

func newEnvironment() *environment {
	return &environment{types: make(map[string]ir.Type), order: make(map[string]int)}
}

func (e *environment) bind(name string, idx int, t ir.Type) {
	e.types[name] = t
	e.order[name] = idx
}

// lookup returns the producer's type and whether the producer exists at
// all. consumerIdx guards against forward references: a step may only
// consume outputs of steps strictly before it.
func (e *environment) lookup(name string, consumerIdx int) (ir.Type, bool, bool) {
	t, ok := e.types[name]
	if !ok {
		return nil, false, false
	}
	return t, true, e.order[name] < consumerIdx
}
