package harness

// TraceEvent records one executed flow operation and its observable
// outcome. Detail values are restricted to canonical-JSON-safe types
// (strings, ints, bools, and nested maps and lists of those).
type TraceEvent struct {
	Seq    int            `json:"seq"`
	Op     string         `json:"op"`
	Detail map[string]any `json:"detail,omitempty"`
}

// Result is the outcome of executing a scenario.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace lists every executed operation in order.
	Trace []TraceEvent `json:"trace"`

	// Errors collects expect and assertion failures. Empty when Pass.
	Errors []string `json:"errors,omitempty"`

	// State captures the final checkpoint tracker state for
	// checkpoint_state assertions.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates an empty passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  map[string]any{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddTrace appends an event, assigning the next sequence number.
func (r *Result) AddTrace(op string, detail map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Op:     op,
		Detail: detail,
	})
}
