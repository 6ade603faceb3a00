package harness

import (
	"fmt"
	"reflect"
)

// matchSubset checks that every key in expected appears in actual with
// an equal value. Nested maps match recursively as subsets; lists must
// match element by element. Returns "" on match, else a description of
// the first mismatch.
func matchSubset(expected, actual map[string]any) string {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return fmt.Sprintf("missing key %q (want %v)", key, want)
		}
		if msg := matchValue(key, want, got); msg != "" {
			return msg
		}
	}
	return ""
}

func matchValue(key string, want, got any) string {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return fmt.Sprintf("key %q: want map, got %T", key, got)
		}
		return matchSubset(w, g)
	case []any:
		g, ok := got.([]any)
		if !ok {
			return fmt.Sprintf("key %q: want list, got %T", key, got)
		}
		if len(w) != len(g) {
			return fmt.Sprintf("key %q: want %d elements, got %d", key, len(w), len(g))
		}
		for i := range w {
			if msg := matchValue(fmt.Sprintf("%s[%d]", key, i), w[i], g[i]); msg != "" {
				return msg
			}
		}
		return ""
	default:
		if !equalScalar(want, got) {
			return fmt.Sprintf("key %q: want %v, got %v", key, want, got)
		}
		return ""
	}
}

// equalScalar compares scalars with integer widening so a YAML int
// matches an int64 detail value.
func equalScalar(a, b any) bool {
	if ai, aok := asInt(a); aok {
		bi, bok := asInt(b)
		return bok && ai == bi
	}
	return reflect.DeepEqual(a, b)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// checkAssertion validates one assertion against a completed result.
// Returns "" on success, else a failure description.
func checkAssertion(a *Assertion, result *Result) string {
	switch a.Type {
	case AssertTraceContains:
		for _, ev := range result.Trace {
			if ev.Op != a.Op {
				continue
			}
			if a.Detail == nil || matchSubset(a.Detail, ev.Detail) == "" {
				return ""
			}
		}
		return fmt.Sprintf("no %q event matches detail %v", a.Op, a.Detail)

	case AssertTraceOrder:
		next := 0
		for _, ev := range result.Trace {
			if next < len(a.Ops) && ev.Op == a.Ops[next] {
				next++
			}
		}
		if next != len(a.Ops) {
			return fmt.Sprintf("trace missing %q at position %d of expected order", a.Ops[next], next)
		}
		return ""

	case AssertTraceCount:
		count := 0
		for _, ev := range result.Trace {
			if ev.Op == a.Op {
				count++
			}
		}
		if count != a.Count {
			return fmt.Sprintf("op %q appeared %d times, want %d", a.Op, count, a.Count)
		}
		return ""

	case AssertCheckpointState:
		if msg := matchSubset(a.Expect, result.State); msg != "" {
			return msg
		}
		return ""

	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
}
