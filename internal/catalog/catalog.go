// Package catalog loads workflow definitions from a catalog source.
//
// The catalog maps workflow names to ordered step lists. Shape is checked
// against an embedded CUE schema at load; semantic defects inside a
// definition (duplicate producer names, malformed binding expressions) are
// collected as diagnostics rather than aborting the load, so one pass
// reports every defect in every workflow.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// MaxSourceBytes is the hard ceiling on a catalog source document.
const MaxSourceBytes = 10 << 20

// Catalog holds the decoded workflow definitions, keyed by name.
type Catalog struct {
	workflows map[string]ir.WorkflowDefinition
}

type document struct {
	Workflows map[string]struct {
		Goal   string `yaml:"goal"`
		Risk   string `yaml:"risk"`
		Inputs []struct {
			Name      string `yaml:"name"`
			SchemaRef string `yaml:"schema_ref"`
			Required  bool   `yaml:"required"`
		} `yaml:"inputs"`
		Steps []struct {
			Capability         string         `yaml:"capability"`
			StoreAs            string         `yaml:"store_as"`
			InputBindings      map[string]any `yaml:"input_bindings"`
			Gates              []string       `yaml:"gates"`
			FailureModes       []string       `yaml:"failure_modes"`
			Retry              int            `yaml:"retry"`
			TimeoutSec         int            `yaml:"timeout_sec"`
			Domain             string         `yaml:"domain"`
			Risk               string         `yaml:"risk"`
			Mutating           *bool          `yaml:"mutating"`
			RequiresCheckpoint *bool          `yaml:"requires_checkpoint"`
		} `yaml:"steps"`
	} `yaml:"workflows"`
}

// LoadError is a fatal catalog load failure (I/O or source shape).
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("catalog %s: %s", e.Path, e.Message)
}

// Load reads a catalog source from disk. The same hardening as the
// ontology loader applies: no symlinks, no oversized documents.
func Load(path string) (*Catalog, *diag.List, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &LoadError{Path: path, Message: "source not found"}
		}
		return nil, nil, &LoadError{Path: path, Message: fmt.Sprintf("stat: %v", err)}
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, nil, &LoadError{Path: path, Message: "source is a symbolic link, refusing to follow"}
	}
	if info.Size() > MaxSourceBytes {
		return nil, nil, &LoadError{Path: path, Message: fmt.Sprintf("source exceeds %d byte ceiling", int64(MaxSourceBytes))}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &LoadError{Path: path, Message: fmt.Sprintf("read: %v", err)}
	}
	return LoadBytes(path, data)
}

// LoadBytes parses a catalog document from memory.
func LoadBytes(path string, data []byte) (*Catalog, *diag.List, error) {
	if len(data) > MaxSourceBytes {
		return nil, nil, &LoadError{Path: path, Message: fmt.Sprintf("source exceeds %d byte ceiling", int64(MaxSourceBytes))}
	}

	if err := validateShape(path, data); err != nil {
		return nil, nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, &LoadError{Path: path, Message: fmt.Sprintf("decode: %v", err)}
	}

	cat := &Catalog{workflows: make(map[string]ir.WorkflowDefinition, len(doc.Workflows))}
	var diags diag.List

	for name, wf := range doc.Workflows {
		def := ir.WorkflowDefinition{
			Name: name,
			Goal: wf.Goal,
			Risk: ir.RiskLevel(wf.Risk),
		}
		for _, in := range wf.Inputs {
			def.Inputs = append(def.Inputs, ir.WorkflowInput{
				Name:      in.Name,
				SchemaRef: in.SchemaRef,
				Required:  in.Required,
			})
		}

		seen := make(map[string]bool)
		for i, st := range wf.Steps {
			loc := diag.Location{Workflow: name, Step: st.StoreAs}
			if st.StoreAs == "" {
				loc.Step = fmt.Sprintf("steps[%d]", i)
				diags.Add(diag.New(diag.CodeMalformedStep, "step is missing store_as", loc))
			} else if seen[st.StoreAs] {
				diags.Add(diag.Newf(diag.CodeDuplicateProducer, loc,
					"store_as %q is already used by an earlier step", st.StoreAs))
			}
			seen[st.StoreAs] = true

			step := ir.WorkflowStep{
				Capability:         st.Capability,
				StoreAs:            st.StoreAs,
				Gates:              st.Gates,
				FailureModes:       st.FailureModes,
				Retry:              st.Retry,
				TimeoutSec:         st.TimeoutSec,
				Domain:             st.Domain,
				Risk:               ir.RiskLevel(st.Risk),
				Mutating:           st.Mutating,
				RequiresCheckpoint: st.RequiresCheckpoint,
			}
			if len(st.InputBindings) > 0 {
				step.Inputs = make(map[string]ir.BindingValue, len(st.InputBindings))
				for key, raw := range st.InputBindings {
					fieldLoc := loc
					fieldLoc.Field = "input_bindings." + key
					step.Inputs[key] = decodeBinding(raw, fieldLoc, &diags)
				}
			}
			def.Steps = append(def.Steps, step)
		}
		cat.workflows[name] = def
	}

	return cat, &diags, nil
}

// decodeBinding converts a decoded YAML value into a BindingValue tree.
// Strings shaped like ${...} become References; a malformed reference is
// reported and kept as a literal so later passes still see the value.
func decodeBinding(raw any, loc diag.Location, diags *diag.List) ir.BindingValue {
	switch v := raw.(type) {
	case string:
		if !ir.IsReferenceExpr(v) {
			return ir.Literal{Value: v}
		}
		ref, err := ir.ParseReference(v)
		if err != nil {
			code := diag.CodeInvalidBindingPath
			if errors.Is(err, ir.ErrBadAnnotation) {
				code = diag.CodeInvalidTypeAnnotation
			}
			diags.Add(diag.Newf(code, loc, "%v", err))
			return ir.Literal{Value: v}
		}
		return ref
	case map[string]any:
		obj := make(ir.ObjectValue, len(v))
		for key, elem := range v {
			elemLoc := loc
			elemLoc.Field = loc.Field + "." + key
			obj[key] = decodeBinding(elem, elemLoc, diags)
		}
		return obj
	case []any:
		list := make(ir.ListValue, len(v))
		for i, elem := range v {
			elemLoc := loc
			elemLoc.Field = fmt.Sprintf("%s[%d]", loc.Field, i)
			list[i] = decodeBinding(elem, elemLoc, diags)
		}
		return list
	default:
		return ir.Literal{Value: v}
	}
}

func validateShape(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("internal schema: %v", err)}
	}
	catSchema := schema.LookupPath(cue.ParsePath("#Catalog"))
	if err := catSchema.Err(); err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("internal schema: %v", err)}
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("parse: %v", err)}
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return &LoadError{Path: path, Message: fmt.Sprintf("parse: %v", err)}
	}

	unified := catSchema.Unify(value)
	if err := unified.Validate(); err != nil {
		msgs := ""
		for i, e := range cueerrors.Errors(err) {
			if i > 0 {
				msgs += "; "
			}
			msgs += e.Error()
		}
		return &LoadError{Path: path, Message: "shape validation failed: " + msgs}
	}
	return nil
}

// Workflow looks up a definition by name.
func (c *Catalog) Workflow(name string) (ir.WorkflowDefinition, bool) {
	wf, ok := c.workflows[name]
	return wf, ok
}

// Names returns every workflow name, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.workflows))
	for name := range c.workflows {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Workflows returns every definition in name order.
func (c *Catalog) Workflows() []ir.WorkflowDefinition {
	out := make([]ir.WorkflowDefinition, 0, len(c.workflows))
	for _, name := range c.Names() {
		out = append(out, c.workflows[name])
	}
	return out
}
