package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/warden/internal/ir"
)

// snapshotMap renders a result as a canonical-JSON-safe map. Canonical
// serialization keeps golden files byte-stable across runs and Go
// versions.
func snapshotMap(scenarioName string, result *Result) map[string]any {
	events := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"seq": ev.Seq,
			"op":  ev.Op,
		}
		if len(ev.Detail) > 0 {
			m["detail"] = ev.Detail
		}
		events[i] = m
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"pass":          result.Pass,
		"trace":         events,
	}
	if len(result.Errors) > 0 {
		snapshot["errors"] = toAnyList(result.Errors)
	}
	if len(result.State) > 0 {
		snapshot["state"] = result.State
	}
	return snapshot
}

// RunWithGolden executes a scenario and compares its trace snapshot
// against testdata/golden/{scenario.Name}.golden. Regenerate goldens
// with go test ./internal/harness -update.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already-computed result against the golden
// file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := ir.MarshalCanonical(snapshotMap(scenarioName, result))
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
