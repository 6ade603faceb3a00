package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative safety test: an ontology, an optional
// workflow catalog, a flow of operations, and assertions over the
// resulting trace.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains the safety property the scenario exercises.
	Description string `yaml:"description"`

	// Ontology is the capability ontology path, relative to the
	// scenario file unless absolute.
	Ontology string `yaml:"ontology"`

	// Catalog is an optional workflow catalog path. Required when the
	// flow contains a validate operation.
	Catalog string `yaml:"catalog,omitempty"`

	// Flow is the ordered list of operations to execute.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and checkpoint state.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep is one operation in a scenario flow. Op selects the
// operation; the remaining fields parameterize it.
type FlowStep struct {
	// Op is one of: validate, plan, checkpoint_create, gate, consume,
	// sweep, invalidate, advance.
	Op string `yaml:"op"`

	// Workflow names a catalog workflow (validate).
	Workflow string `yaml:"workflow,omitempty"`

	// Targets lists capability ids (plan).
	Targets []string `yaml:"targets,omitempty"`

	// Capability and Target parameterize a gate check.
	Capability string `yaml:"capability,omitempty"`
	Target     string `yaml:"target,omitempty"`

	// Scope, Reason, and TTLMinutes parameterize checkpoint_create.
	// A nil TTLMinutes means the checkpoint never expires.
	Scope      []string `yaml:"scope,omitempty"`
	Reason     string   `yaml:"reason,omitempty"`
	TTLMinutes *int     `yaml:"ttl_minutes,omitempty"`

	// Minutes is the clock advance amount (advance).
	Minutes int `yaml:"minutes,omitempty"`

	// Expect is a subset match against the operation's trace detail.
	// A mismatch fails the scenario but execution continues.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion validates the trace or final checkpoint state after the
// flow completes.
type Assertion struct {
	// Type is one of: trace_contains, trace_order, trace_count,
	// checkpoint_state.
	Type string `yaml:"type"`

	// Op names the operation (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Detail is a subset match on the event detail (trace_contains).
	Detail map[string]any `yaml:"detail,omitempty"`

	// Ops is the expected operation order (trace_order). Events not
	// named may appear between them.
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected occurrence count (trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect is a subset match on final state (checkpoint_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertCheckpointState = "checkpoint_state"
)

var flowOps = map[string]bool{
	"validate":          true,
	"plan":              true,
	"checkpoint_create": true,
	"gate":              true,
	"consume":           true,
	"sweep":             true,
	"invalidate":        true,
	"advance":           true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo fails loudly instead of silently skipping an
// assertion. Relative ontology and catalog paths resolve against the
// scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Ontology != "" && !filepath.IsAbs(scenario.Ontology) {
		scenario.Ontology = filepath.Join(base, scenario.Ontology)
	}
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(base, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Ontology == "" {
		return fmt.Errorf("ontology is required")
	}
	if _, err := os.Stat(s.Ontology); os.IsNotExist(err) {
		return fmt.Errorf("ontology file not found: %s", s.Ontology)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	needsCatalog := false
	for i, step := range s.Flow {
		if !flowOps[step.Op] {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		switch step.Op {
		case "validate":
			needsCatalog = true
			if step.Workflow == "" {
				return fmt.Errorf("flow[%d]: workflow is required for validate", i)
			}
		case "plan":
			if len(step.Targets) == 0 {
				return fmt.Errorf("flow[%d]: targets is required for plan", i)
			}
		case "gate":
			if step.Capability == "" {
				return fmt.Errorf("flow[%d]: capability is required for gate", i)
			}
		case "advance":
			if step.Minutes <= 0 {
				return fmt.Errorf("flow[%d]: minutes must be positive for advance", i)
			}
		}
	}
	if needsCatalog {
		if s.Catalog == "" {
			return fmt.Errorf("catalog is required when the flow validates a workflow")
		}
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertCheckpointState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for checkpoint_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
