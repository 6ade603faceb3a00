package ir

// WorkflowDefinition is an ordered capability sequence from the catalog.
// Definitions are validated as pure functions over an immutable ontology
// snapshot; nothing here is ever authoritative over the graph.
type WorkflowDefinition struct {
	Name   string          `json:"name"`
	Goal   string          `json:"goal"`
	Risk   RiskLevel       `json:"risk,omitempty"`
	Inputs []WorkflowInput `json:"inputs,omitempty"`
	Steps  []WorkflowStep  `json:"steps"`
}

// WorkflowInput declares an external binding available to steps, with an
// optional schema reference into the ontology's shared fragments.
type WorkflowInput struct {
	Name      string `json:"name"`
	SchemaRef string `json:"schema_ref,omitempty"`
	Required  bool   `json:"required,omitempty"`
}

// WorkflowStep is one step of a definition.
//
// The declared Risk/Mutating/RequiresCheckpoint flags are advisory: a step
// may tighten what the ontology says but can never lower it. A declaration
// understating ontology ground truth is a constraint violation.
type WorkflowStep struct {
	Capability string                  `json:"capability"`
	StoreAs    string                  `json:"store_as"` // unique within a definition
	Inputs     map[string]BindingValue `json:"input_bindings,omitempty"`
	Gates      []string                `json:"gates,omitempty"`

	Risk               RiskLevel `json:"risk,omitempty"`
	Mutating           *bool     `json:"mutating,omitempty"`
	RequiresCheckpoint *bool     `json:"requires_checkpoint,omitempty"`

	FailureModes []string `json:"failure_modes,omitempty"`
	Retry        int      `json:"retry,omitempty"`
	TimeoutSec   int      `json:"timeout_sec,omitempty"`
	Domain       string   `json:"domain,omitempty"`
}

// BindingValue is a sealed interface over a step's nested input bindings.
// Only Literal, Reference, ObjectValue, and ListValue implement it.
type BindingValue interface {
	bindingValue() // Sealed - only types in this package implement it
}

// Literal is a scalar literal (string, number, bool, or nil).
type Literal struct {
	Value any `json:"value"`
}

func (Literal) bindingValue() {}

// Reference is a parsed ${...} expression: the producing step's store name,
// a dotted field path into its output, and an optional declared type.
type Reference struct {
	Raw      string   `json:"raw"`
	Producer string   `json:"producer"`
	Path     []string `json:"path,omitempty"`
	Declared Type     `json:"-"`
	// DeclaredText preserves the annotation as written, for diagnostics.
	DeclaredText string `json:"declared,omitempty"`
}

func (Reference) bindingValue() {}

// ObjectValue is a nested object of bindings.
type ObjectValue map[string]BindingValue

func (ObjectValue) bindingValue() {}

// ListValue is a nested list of bindings.
type ListValue []BindingValue

func (ListValue) bindingValue() {}
