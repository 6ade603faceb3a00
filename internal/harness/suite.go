package harness

import (
	"fmt"
	"path/filepath"
	"sort"
)

// SuiteResult aggregates scenario outcomes across a directory.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure records one failed scenario and why.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// RunSuite loads and executes every *.yaml scenario under dir, in
// lexical order. Load and execution errors count as failures rather
// than aborting the suite, so one broken scenario never hides the rest.
func RunSuite(dir string) (*SuiteResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	suite := &SuiteResult{}
	for _, path := range paths {
		suite.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: filepath.Base(path),
				Path:     path,
				Error:    err.Error(),
			})
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: scenario.Name,
				Path:     path,
				Error:    err.Error(),
			})
			continue
		}
		if !result.Pass {
			suite.Failed++
			suite.Failures = append(suite.Failures, ScenarioFailure{
				Scenario: scenario.Name,
				Path:     path,
				Error:    fmt.Sprintf("assertions failed: %v", result.Errors),
			})
			continue
		}
		suite.Passed++
	}
	return suite, nil
}
