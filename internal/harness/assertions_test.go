package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSubsetScalars(t *testing.T) {
	actual := map[string]any{"allowed": true, "code": "CHECKPOINT_REQUIRED", "count": int64(3)}

	assert.Empty(t, matchSubset(map[string]any{"allowed": true}, actual))
	assert.Empty(t, matchSubset(map[string]any{"code": "CHECKPOINT_REQUIRED"}, actual))

	// YAML decodes numbers as int; detail values may be int64.
	assert.Empty(t, matchSubset(map[string]any{"count": 3}, actual))

	assert.Contains(t, matchSubset(map[string]any{"allowed": false}, actual), "allowed")
	assert.Contains(t, matchSubset(map[string]any{"missing": 1}, actual), "missing")
}

func TestMatchSubsetLists(t *testing.T) {
	actual := map[string]any{"order": []any{"plan", "mutate", "audit"}}

	assert.Empty(t, matchSubset(map[string]any{"order": []any{"plan", "mutate", "audit"}}, actual))
	assert.Contains(t,
		matchSubset(map[string]any{"order": []any{"plan", "mutate"}}, actual),
		"elements")
	assert.Contains(t,
		matchSubset(map[string]any{"order": []any{"plan", "audit", "mutate"}}, actual),
		"order[1]")
}

func TestMatchSubsetNestedMaps(t *testing.T) {
	actual := map[string]any{
		"state": map[string]any{"has_active": true, "history_count": 2},
	}

	assert.Empty(t, matchSubset(map[string]any{
		"state": map[string]any{"has_active": true},
	}, actual))
	assert.NotEmpty(t, matchSubset(map[string]any{
		"state": map[string]any{"has_active": false},
	}, actual))
}

func traceFixture() *Result {
	r := NewResult()
	r.AddTrace("gate", map[string]any{"allowed": false, "code": "CHECKPOINT_REQUIRED"})
	r.AddTrace("checkpoint_create", map[string]any{"id": "ck-000001"})
	r.AddTrace("gate", map[string]any{"allowed": true, "checkpoint_id": "ck-000001"})
	r.State = map[string]any{"has_active": true, "history_count": 0}
	return r
}

func TestAssertTraceContains(t *testing.T) {
	r := traceFixture()

	assert.Empty(t, checkAssertion(&Assertion{
		Type:   AssertTraceContains,
		Op:     "gate",
		Detail: map[string]any{"allowed": true},
	}, r))

	msg := checkAssertion(&Assertion{
		Type:   AssertTraceContains,
		Op:     "gate",
		Detail: map[string]any{"allowed": true, "code": "APPROVAL_REQUIRED"},
	}, r)
	assert.Contains(t, msg, "gate")
}

func TestAssertTraceOrder(t *testing.T) {
	r := traceFixture()

	assert.Empty(t, checkAssertion(&Assertion{
		Type: AssertTraceOrder,
		Ops:  []string{"gate", "checkpoint_create", "gate"},
	}, r))

	msg := checkAssertion(&Assertion{
		Type: AssertTraceOrder,
		Ops:  []string{"checkpoint_create", "checkpoint_create"},
	}, r)
	assert.Contains(t, msg, "position 1")
}

func TestAssertTraceCount(t *testing.T) {
	r := traceFixture()

	assert.Empty(t, checkAssertion(&Assertion{Type: AssertTraceCount, Op: "gate", Count: 2}, r))
	assert.NotEmpty(t, checkAssertion(&Assertion{Type: AssertTraceCount, Op: "gate", Count: 3}, r))
	assert.Empty(t, checkAssertion(&Assertion{Type: AssertTraceCount, Op: "sweep", Count: 0}, r))
}

func TestAssertCheckpointState(t *testing.T) {
	r := traceFixture()

	assert.Empty(t, checkAssertion(&Assertion{
		Type:   AssertCheckpointState,
		Expect: map[string]any{"has_active": true},
	}, r))
	assert.NotEmpty(t, checkAssertion(&Assertion{
		Type:   AssertCheckpointState,
		Expect: map[string]any{"history_count": 5},
	}, r))
}
