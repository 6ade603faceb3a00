package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/coercion"
	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ir"
)

func mustRef(t *testing.T, raw string) ir.Reference {
	t.Helper()
	ref, err := ir.ParseReference(raw)
	require.NoError(t, err)
	return ref
}

func searchSource() *fakeSource {
	return &fakeSource{
		nodes: map[string]ir.CapabilityNode{
			"retrieve": {
				ID: "retrieve",
				OutputSchema: &ir.Schema{
					Kind: "object",
					Properties: map[string]*ir.Schema{
						"results": {Ref: "#/schemas/search_results"},
						"count":   {Kind: "number"},
					},
				},
			},
			"plan": {
				ID: "plan",
				InputSchema: &ir.Schema{
					Kind: "object",
					Properties: map[string]*ir.Schema{
						"evidence": {Kind: "array", Items: &ir.Schema{Kind: "string"}},
						"goal":     {Kind: "string"},
					},
					Required: []string{"goal"},
				},
			},
			"mutate": {ID: "mutate", Mutating: true},
		},
		frags: map[string]*ir.Schema{
			"search_results": {
				Kind: "array",
				Items: &ir.Schema{
					Kind: "object",
					Properties: map[string]*ir.Schema{
						"title": {Kind: "string"},
						"score": {Kind: "number"},
					},
				},
			},
		},
	}
}

func TestCheckWorkflowCleanPass(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "retrieve", StoreAs: "search_out",
				Inputs: map[string]ir.BindingValue{"query": ir.Literal{Value: "tides"}}},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": ir.Literal{Value: "summarize"},
				}},
		},
	}
	diags, suggestions := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	assert.True(t, diags.Empty(), "%v", diags.Messages())
	assert.Empty(t, suggestions)
}

func TestCheckWorkflowAnnotationMismatch(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "retrieve", StoreAs: "search_out"},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal":     ir.Literal{Value: "summarize"},
					"evidence": mustRef(t, "${search_out.results: array<string>}"),
				}},
		},
	}
	diags, suggestions := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len(), "%v", diags.Messages())

	d := diags.Items()[0]
	assert.Equal(t, diag.CodeTypeMismatch, d.Code)
	assert.Equal(t, "plan_out", d.Location.Step)
	assert.Equal(t, "evidence", d.Location.Field)
	assert.Contains(t, d.Message, "array<string>")

	// No coercion registered, so the mismatch stands alone.
	assert.Empty(t, suggestions)
}

func TestCheckWorkflowMismatchWithCoercionSuggestion(t *testing.T) {
	registry, err := coercion.LoadBytes("coercions.yaml", []byte(`
coercions:
  - from: array<object{score:number,title:string}>
    to: array<string>
    mapping: extract_titles
`))
	require.NoError(t, err)

	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "retrieve", StoreAs: "search_out"},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal":     ir.Literal{Value: "summarize"},
					"evidence": mustRef(t, "${search_out.results: array<string>}"),
				}},
		},
	}
	diags, suggestions := NewChecker(searchSource(), registry).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	assert.Equal(t, diag.CodeTypeMismatch, diags.Items()[0].Code)

	require.Len(t, suggestions, 1)
	assert.Equal(t, "extract_titles", suggestions[0].Transform)
	assert.Equal(t, "array<string>", suggestions[0].To)
	assert.Equal(t, "evidence", suggestions[0].Location.Field)
}

func TestCheckWorkflowMissingProducer(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": mustRef(t, "${nowhere}"),
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.CodeMissingProducer, d.Code)
	assert.Contains(t, d.Message, `"nowhere"`)
}

func TestCheckWorkflowForwardReference(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": mustRef(t, "${search_out.count: number}"),
				}},
			{Capability: "retrieve", StoreAs: "search_out"},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.CodeMissingProducer, d.Code)
	assert.Contains(t, d.Message, "later step")
}

func TestCheckWorkflowInvalidPath(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "retrieve", StoreAs: "search_out"},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": mustRef(t, "${search_out.hits: number}"),
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.CodeInvalidBindingPath, d.Code)
	assert.Contains(t, d.Message, `"hits"`)
}

func TestCheckWorkflowPathThroughArray(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "retrieve", StoreAs: "search_out"},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": mustRef(t, "${search_out.results.title: string}"),
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	assert.True(t, diags.Empty(), "%v", diags.Messages())
}

func TestCheckWorkflowAmbiguousWithoutAnnotation(t *testing.T) {
	// mutate declares no output schema, so its type is unknown.
	wf := &ir.WorkflowDefinition{
		Name: "apply",
		Steps: []ir.WorkflowStep{
			{Capability: "mutate", StoreAs: "apply_out"},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": mustRef(t, "${apply_out}"),
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.CodeAmbiguousType, d.Code)
	assert.Contains(t, d.Message, "annotate")
}

func TestCheckWorkflowAnnotationResolvesAmbiguity(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "apply",
		Steps: []ir.WorkflowStep{
			{Capability: "mutate", StoreAs: "apply_out"},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": mustRef(t, "${apply_out: string}"),
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	assert.True(t, diags.Empty(), "%v", diags.Messages())
}

func TestCheckWorkflowMissingRequiredInput(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "plan", StoreAs: "plan_out"},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.CodeMissingRequiredField, d.Code)
	assert.Equal(t, "goal", d.Location.Field)
	assert.Contains(t, d.Message, `requires input "goal"`)
}

func TestCheckWorkflowLiteralAgainstInputSchema(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": ir.Literal{Value: 7},
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.CodeTypeMismatch, d.Code)
	assert.Contains(t, d.Message, "expects string")
}

func TestCheckWorkflowInputsAsProducers(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Inputs: []ir.WorkflowInput{
			{Name: "seeds", SchemaRef: "search_results", Required: true},
		},
		Steps: []ir.WorkflowStep{
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"goal": mustRef(t, "${seeds.title: string}"),
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	assert.True(t, diags.Empty(), "%v", diags.Messages())
}

func TestCheckWorkflowNestedBindingLocation(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "apply",
		Steps: []ir.WorkflowStep{
			{Capability: "mutate", StoreAs: "apply_out",
				Inputs: map[string]ir.BindingValue{
					"payload": ir.ObjectValue{
						"steps": mustRef(t, "${plan_out.steps}"),
					},
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 1, diags.Len())
	d := diags.Items()[0]
	assert.Equal(t, diag.CodeMissingProducer, d.Code)
	assert.Equal(t, "payload.steps", d.Location.Field)
}

func TestCheckWorkflowCollectsEverything(t *testing.T) {
	wf := &ir.WorkflowDefinition{
		Name: "research",
		Steps: []ir.WorkflowStep{
			{Capability: "retrieve", StoreAs: "search_out"},
			{Capability: "plan", StoreAs: "plan_out",
				Inputs: map[string]ir.BindingValue{
					"evidence": mustRef(t, "${search_out.results: array<string>}"),
					"extra":    mustRef(t, "${nowhere}"),
				}},
		},
	}
	diags, _ := NewChecker(searchSource(), nil).CheckWorkflow(wf)
	require.Equal(t, 3, diags.Len(), "%v", diags.Messages())

	codes := make([]string, 0, 3)
	for _, d := range diags.Items() {
		codes = append(codes, d.Code)
	}
	assert.ElementsMatch(t, codes, []string{
		diag.CodeTypeMismatch,
		diag.CodeMissingProducer,
		diag.CodeMissingRequiredField,
	})
}
