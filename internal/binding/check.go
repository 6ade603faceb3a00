package binding

import (
	"fmt"
	"strings"

	"github.com/roach88/warden/internal/coercion"
	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ir"
)

// CapabilitySource is the slice of the ontology graph binding checks
// need: capability lookup for input and output schemas, and shared
// fragments for $ref expansion.
type CapabilitySource interface {
	FragmentSource
	Node(id string) (ir.CapabilityNode, bool)
}

// Suggestion is an advisory repair for a type mismatch: insert the named
// transform between producer and consumer. Suggestions never change the
// verdict; the mismatch they attach to is still an error.
type Suggestion struct {
	Location  diag.Location `json:"location"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Transform string        `json:"transform"`
}

func (s Suggestion) String() string {
	return fmt.Sprintf("%s: insert %s to coerce %s to %s",
		s.Location, s.Transform, s.From, s.To)
}

// Checker validates every binding in a workflow against the ontology's
// schemas. Coercions may be nil; suggestions are then never produced.
type Checker struct {
	source    CapabilitySource
	coercions *coercion.Registry
}

func NewChecker(source CapabilitySource, coercions *coercion.Registry) *Checker {
	return &Checker{source: source, coercions: coercions}
}

// CheckWorkflow resolves every binding in wf and collects all defects:
// unknown producers, forward references, bad paths, ambiguous types
// without annotations, annotation and consumer-schema mismatches, and
// unbound required inputs. One pass reports everything at once.
func (c *Checker) CheckWorkflow(wf *ir.WorkflowDefinition) (*diag.List, []Suggestion) {
	diags := &diag.List{}
	var suggestions []Suggestion
	env := c.buildEnvironment(wf, diags)

	for idx, step := range wf.Steps {
		node, known := c.source.Node(step.Capability)
		loc := diag.Location{Workflow: wf.Name, Step: step.StoreAs}

		var expected map[string]ir.Type
		var required []string
		if known && node.InputSchema != nil {
			expected, required = c.lowerInputSchema(node.InputSchema, loc, diags)
		}

		for field, bv := range step.Inputs {
			floc := loc
			floc.Field = field
			got := c.checkValue(bv, env, idx, floc, diags, &suggestions)
			want, constrained := expected[field]
			if !constrained || got == nil {
				continue
			}
			if !Compatible(want, got) {
				diags.Add(diag.Newf(diag.CodeTypeMismatch, floc,
					"capability %s expects %s, binding provides %s",
					step.Capability, ir.TypeString(want), ir.TypeString(got)))
				suggestions = c.suggest(suggestions, floc, got, want)
			}
		}

		for _, name := range required {
			if _, bound := step.Inputs[name]; !bound {
				floc := loc
				floc.Field = name
				diags.Add(diag.Newf(diag.CodeMissingRequiredField, floc,
					"capability %s requires input %q", step.Capability, name))
			}
		}
	}
	return diags, suggestions
}

// buildEnvironment maps every producer name to its resolved type:
// workflow inputs first, then each step's store_as. Capabilities the
// ontology does not know contribute unknown; the dependency resolver
// owns reporting them.
func (c *Checker) buildEnvironment(wf *ir.WorkflowDefinition, diags *diag.List) *environment {
	env := newEnvironment()
	for _, in := range wf.Inputs {
		loc := diag.Location{Workflow: wf.Name, Field: in.Name}
		t := ir.Type(ir.TUnknown{})
		if in.SchemaRef != "" {
			t = c.lowerFragmentRef(in.SchemaRef, loc, diags)
		}
		env.bind(in.Name, -1, t)
	}
	for idx, step := range wf.Steps {
		node, known := c.source.Node(step.Capability)
		t := ir.Type(ir.TUnknown{})
		if known && node.OutputSchema != nil {
			loc := diag.Location{Workflow: wf.Name, Step: step.StoreAs}
			t = c.lowerOrReport(node.OutputSchema, loc, diags)
		}
		env.bind(step.StoreAs, idx, t)
	}
	return env
}

// checkValue resolves one binding value to its type, recursing through
// object and list composites. Returns nil when a defect makes the type
// unusable for further checks.
func (c *Checker) checkValue(bv ir.BindingValue, env *environment, consumerIdx int, loc diag.Location, diags *diag.List, suggestions *[]Suggestion) ir.Type {
	switch v := bv.(type) {
	case ir.Literal:
		return literalType(v.Value)
	case ir.Reference:
		return c.checkReference(v, env, consumerIdx, loc, diags, suggestions)
	case ir.ObjectValue:
		fields := make(map[string]ir.Type, len(v))
		for name, inner := range v {
			floc := loc
			floc.Field = joinField(loc.Field, name)
			t := c.checkValue(inner, env, consumerIdx, floc, diags, suggestions)
			if t == nil {
				t = ir.TUnknown{}
			}
			fields[name] = t
		}
		return ir.TObject{Fields: fields}
	case ir.ListValue:
		var elem ir.Type = ir.TUnknown{}
		for i, inner := range v {
			floc := loc
			floc.Field = fmt.Sprintf("%s[%d]", loc.Field, i)
			t := c.checkValue(inner, env, consumerIdx, floc, diags, suggestions)
			if t == nil {
				continue
			}
			if i == 0 {
				elem = t
			} else if ir.TypeString(t) != ir.TypeString(elem) {
				elem = ir.TUnknown{}
			}
		}
		return ir.TArray{Elem: elem}
	default:
		return ir.TUnknown{}
	}
}

func (c *Checker) checkReference(ref ir.Reference, env *environment, consumerIdx int, loc diag.Location, diags *diag.List, suggestions *[]Suggestion) ir.Type {
	produced, exists, earlier := env.lookup(ref.Producer, consumerIdx)
	if !exists {
		diags.Add(diag.Newf(diag.CodeMissingProducer, loc,
			"no step stores %q and no workflow input declares it", ref.Producer))
		return nil
	}
	if !earlier {
		diags.Add(diag.Newf(diag.CodeMissingProducer, loc,
			"%q is produced by a later step", ref.Producer))
		return nil
	}

	inferred, err := descend(produced, ref.Path)
	if err != nil {
		diags.Add(diag.Newf(diag.CodeInvalidBindingPath, loc,
			"%s: %v", ref.Raw, err))
		return nil
	}

	if ref.Declared == nil {
		if ir.IsAmbiguous(inferred) {
			diags.Add(diag.Newf(diag.CodeAmbiguousType, loc,
				"inferred type %s is ambiguous; annotate the binding",
				ir.TypeString(inferred)))
		}
		return inferred
	}

	if !Compatible(ref.Declared, inferred) {
		diags.Add(diag.Newf(diag.CodeTypeMismatch, loc,
			"annotation declares %s but producer yields %s",
			ref.DeclaredText, ir.TypeString(inferred)))
		*suggestions = c.suggest(*suggestions, loc, inferred, ref.Declared)
	}
	// The annotation wins for downstream checks even when it mismatches,
	// so one bad binding yields one mismatch, not a cascade.
	return ref.Declared
}

func (c *Checker) lowerInputSchema(s *ir.Schema, loc diag.Location, diags *diag.List) (map[string]ir.Type, []string) {
	t := c.lowerOrReport(s, loc, diags)
	obj, ok := t.(ir.TObject)
	if !ok {
		return nil, nil
	}
	return obj.Fields, s.Required
}

func (c *Checker) lowerOrReport(s *ir.Schema, loc diag.Location, diags *diag.List) ir.Type {
	t, err := LowerSchema(c.source, s)
	if err != nil {
		diags.Add(diag.New(resolveCode(err), err.Error(), loc))
		return ir.TUnknown{}
	}
	return t
}

func (c *Checker) lowerFragmentRef(name string, loc diag.Location, diags *diag.List) ir.Type {
	return c.lowerOrReport(&ir.Schema{Ref: "#/schemas/" + name}, loc, diags)
}

// suggest appends a transform suggestion when the registry knows a
// coercion from the provided type to the wanted one.
func (c *Checker) suggest(out []Suggestion, loc diag.Location, from, to ir.Type) []Suggestion {
	if c.coercions == nil {
		return out
	}
	rule, ok := c.coercions.Lookup(from, to)
	if !ok {
		return out
	}
	return append(out, Suggestion{
		Location:  loc,
		From:      ir.TypeString(from),
		To:        ir.TypeString(to),
		Transform: rule.Mapping,
	})
}

func resolveCode(err error) string {
	if re, ok := err.(*resolveErr); ok {
		return re.code
	}
	return diag.CodeSchemaValidationFailed
}

// literalType infers a type from an inline YAML value.
func literalType(v any) ir.Type {
	switch x := v.(type) {
	case nil:
		return ir.TNullable{Elem: ir.TUnknown{}}
	case string:
		return ir.TString{}
	case bool:
		return ir.TBool{}
	case int, int64, uint64, float64:
		return ir.TNumber{}
	case []any:
		var elem ir.Type = ir.TUnknown{}
		for i, item := range x {
			t := literalType(item)
			if i == 0 {
				elem = t
			} else if ir.TypeString(t) != ir.TypeString(elem) {
				elem = ir.TUnknown{}
			}
		}
		return ir.TArray{Elem: elem}
	case map[string]any:
		fields := make(map[string]ir.Type, len(x))
		for name, item := range x {
			fields[name] = literalType(item)
		}
		return ir.TObject{Fields: fields}
	default:
		return ir.TUnknown{}
	}
}

func joinField(base, name string) string {
	if base == "" {
		return name
	}
	return strings.Join([]string{base, name}, ".")
}
