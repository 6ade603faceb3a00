package ir

// RiskLevel classifies a capability's inherent risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ValidRiskLevels defines allowed risk classifications.
var ValidRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// EdgeKind is the relationship taxonomy between capabilities.
type EdgeKind string

const (
	// EdgeRequires is a hard dependency: the target must be present (and
	// ordered first) whenever the source runs.
	EdgeRequires EdgeKind = "requires"

	// EdgeSoftRequires is advisory only. It is NEVER folded into
	// hard-dependency computation; closure and ordering ignore it.
	EdgeSoftRequires EdgeKind = "soft_requires"

	// EdgePrecedes orders source before target when both are present,
	// without pulling either into a closure.
	EdgePrecedes EdgeKind = "precedes"

	// EdgeConflictsWith marks a symmetric mutual exclusion.
	EdgeConflictsWith EdgeKind = "conflicts_with"

	// EdgeAlternativeTo marks a symmetric substitutability relation.
	EdgeAlternativeTo EdgeKind = "alternative_to"

	// EdgeSpecializes marks source as a narrower variant of target.
	EdgeSpecializes EdgeKind = "specializes"
)

// ValidEdgeKinds defines the fixed edge-kind set.
var ValidEdgeKinds = map[EdgeKind]bool{
	EdgeRequires:      true,
	EdgeSoftRequires:  true,
	EdgePrecedes:      true,
	EdgeConflictsWith: true,
	EdgeAlternativeTo: true,
	EdgeSpecializes:   true,
}

// LayerCount is the fixed number of cognitive layers in an ontology.
const LayerCount = 9

// CapabilityNode is one capability in the ontology. Immutable once loaded.
type CapabilityNode struct {
	ID                 string    `json:"id"`
	Layer              string    `json:"layer"`
	LayerIndex         int       `json:"layer_index"` // position in the ordered layer list
	Risk               RiskLevel `json:"risk"`
	Mutating           bool      `json:"mutating"`
	RequiresCheckpoint bool      `json:"requires_checkpoint"`
	RequiresApproval   bool      `json:"requires_approval"`
	Description        string    `json:"description,omitempty"`
	InputSchema        *Schema   `json:"input_schema,omitempty"`
	OutputSchema       *Schema   `json:"output_schema,omitempty"`
}

// CapabilityEdge is one typed relationship between two capabilities.
type CapabilityEdge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"type"`
}

// Schema is a structural type descriptor as it appears in source documents.
// It is a restricted JSON-Schema-shaped grammar: a kind tag plus shape
// fields, with $ref pointers into the owning document's shared fragments.
// The binding type system lowers Schema fragments into Type values.
type Schema struct {
	Kind       string             `json:"type,omitempty" yaml:"type,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items      *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	Values     *Schema            `json:"values,omitempty" yaml:"values,omitempty"` // map value shape
	OneOf      []*Schema          `json:"one_of,omitempty" yaml:"one_of,omitempty"`
	Nullable   bool               `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Ref        string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Required   []string           `json:"required,omitempty" yaml:"required,omitempty"`
}
