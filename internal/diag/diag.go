// Package diag defines warden's fixed diagnostic taxonomy.
//
// Every defect detected by the kernel carries a short code, a message, and
// a structured location. Validation, binding, and schema diagnostics are
// collected, never short-circuited, so one pass reports every defect at
// once. Runtime codes are defined here for collaborators but never raised
// by the kernel itself.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Category groups diagnostic codes by shape.
type Category string

const (
	// CategoryValidation covers graph-shape defects in workflows.
	CategoryValidation Category = "validation"
	// CategoryBinding covers reference-shape defects in ${...} bindings.
	CategoryBinding Category = "binding"
	// CategorySchema covers source-shape defects in schema documents.
	CategorySchema Category = "schema"
	// CategoryRuntime covers execution-shape failures. Surfaced by
	// collaborators; the kernel validates and gates but never executes.
	CategoryRuntime Category = "runtime"
	// CategorySafety covers policy-shape violations.
	CategorySafety Category = "safety"
)

// Diagnostic codes. The set is fixed; collaborators must not invent codes.
const (
	// Validation (graph-shape)
	CodeUnknownCapability   = "UNKNOWN_CAPABILITY"
	CodeMissingPrerequisite = "MISSING_PREREQUISITE"
	CodeMalformedStep       = "MALFORMED_STEP"
	CodeDuplicateProducer   = "DUPLICATE_PRODUCER"
	CodeCircularDependency  = "CIRCULAR_DEPENDENCY"

	// Binding (reference-shape)
	CodeInvalidBindingPath    = "INVALID_BINDING_PATH"
	CodeMissingProducer       = "MISSING_PRODUCER"
	CodeTypeMismatch          = "TYPE_MISMATCH"
	CodeAmbiguousType         = "AMBIGUOUS_TYPE"
	CodeInvalidTypeAnnotation = "INVALID_TYPE_ANNOTATION"

	// Schema (source-shape)
	CodeSchemaNotFound         = "SCHEMA_NOT_FOUND"
	CodeInvalidPointer         = "INVALID_POINTER"
	CodeSchemaValidationFailed = "SCHEMA_VALIDATION_FAILED"
	CodeMissingRequiredField   = "MISSING_REQUIRED_FIELD"

	// Runtime (execution-shape; collaborator-surfaced)
	CodeTimeout           = "TIMEOUT"
	CodeExecutionFailed   = "EXECUTION_FAILED"
	CodeGateBlocked       = "GATE_BLOCKED"
	CodeRecoveryExhausted = "RECOVERY_EXHAUSTED"

	// Safety (policy-shape)
	CodeCheckpointRequired = "CHECKPOINT_REQUIRED"
	CodeApprovalRequired   = "APPROVAL_REQUIRED"
	CodeRollbackFailed     = "ROLLBACK_FAILED"
	CodeConstraintViolated = "CONSTRAINT_VIOLATED"
	CodeProvenanceMissing  = "PROVENANCE_MISSING"
)

// categories maps every code to its category for exhaustive routing.
var categories = map[string]Category{
	CodeUnknownCapability:   CategoryValidation,
	CodeMissingPrerequisite: CategoryValidation,
	CodeMalformedStep:       CategoryValidation,
	CodeDuplicateProducer:   CategoryValidation,
	CodeCircularDependency:  CategoryValidation,

	CodeInvalidBindingPath:    CategoryBinding,
	CodeMissingProducer:       CategoryBinding,
	CodeTypeMismatch:          CategoryBinding,
	CodeAmbiguousType:         CategoryBinding,
	CodeInvalidTypeAnnotation: CategoryBinding,

	CodeSchemaNotFound:         CategorySchema,
	CodeInvalidPointer:         CategorySchema,
	CodeSchemaValidationFailed: CategorySchema,
	CodeMissingRequiredField:   CategorySchema,

	CodeTimeout:           CategoryRuntime,
	CodeExecutionFailed:   CategoryRuntime,
	CodeGateBlocked:       CategoryRuntime,
	CodeRecoveryExhausted: CategoryRuntime,

	CodeCheckpointRequired: CategorySafety,
	CodeApprovalRequired:   CategorySafety,
	CodeRollbackFailed:     CategorySafety,
	CodeConstraintViolated: CategorySafety,
	CodeProvenanceMissing:  CategorySafety,
}

// CategoryOf returns the category for a code, or "" for unknown codes.
func CategoryOf(code string) Category {
	return categories[code]
}

// KnownCode reports whether code belongs to the fixed taxonomy.
func KnownCode(code string) bool {
	_, ok := categories[code]
	return ok
}

// Location pins a diagnostic to a spot in a workflow or source document.
// Zero-value fields are omitted from rendering.
type Location struct {
	Workflow string `json:"workflow,omitempty"`
	Step     string `json:"step,omitempty"`  // store_as name
	Field    string `json:"field,omitempty"` // dotted path within the step
}

func (l Location) String() string {
	parts := make([]string, 0, 3)
	if l.Workflow != "" {
		parts = append(parts, "workflow "+l.Workflow)
	}
	if l.Step != "" {
		parts = append(parts, "step "+l.Step)
	}
	if l.Field != "" {
		parts = append(parts, "field "+l.Field)
	}
	return strings.Join(parts, ", ")
}

// Diagnostic is one defect with its taxonomy coordinates.
type Diagnostic struct {
	Category Category `json:"category"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	loc := d.Location.String()
	if loc != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Code, loc, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

// New builds a Diagnostic, deriving the category from the code.
func New(code, message string, loc Location) Diagnostic {
	return Diagnostic{
		Category: CategoryOf(code),
		Code:     code,
		Message:  message,
		Location: loc,
	}
}

// Newf is New with Sprintf formatting.
func Newf(code string, loc Location, format string, args ...any) Diagnostic {
	return New(code, fmt.Sprintf(format, args...), loc)
}

// List collects diagnostics across a whole validation pass.
type List struct {
	items []Diagnostic
}

// Add appends diagnostics to the list.
func (l *List) Add(ds ...Diagnostic) {
	l.items = append(l.items, ds...)
}

// Merge appends every diagnostic from another list.
func (l *List) Merge(other *List) {
	if other != nil {
		l.items = append(l.items, other.items...)
	}
}

// Empty reports whether no diagnostics were collected.
func (l *List) Empty() bool {
	return len(l.items) == 0
}

// Len returns the number of collected diagnostics.
func (l *List) Len() int {
	return len(l.items)
}

// Items returns the collected diagnostics sorted deterministically:
// by workflow, step, field, then code. Sorting happens on read so that
// collection order never leaks into reports or golden files.
func (l *List) Items() []Diagnostic {
	out := make([]Diagnostic, len(l.items))
	copy(out, l.items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Location.Workflow != b.Location.Workflow {
			return a.Location.Workflow < b.Location.Workflow
		}
		if a.Location.Step != b.Location.Step {
			return a.Location.Step < b.Location.Step
		}
		if a.Location.Field != b.Location.Field {
			return a.Location.Field < b.Location.Field
		}
		return a.Code < b.Code
	})
	return out
}

// Messages returns the rendered message of every diagnostic, in the same
// deterministic order as Items.
func (l *List) Messages() []string {
	items := l.Items()
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.Error()
	}
	return out
}

// ByCategory returns collected diagnostics in the given category.
func (l *List) ByCategory(c Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range l.Items() {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}
