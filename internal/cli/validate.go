package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/binding"
	"github.com/roach88/warden/internal/catalog"
	"github.com/roach88/warden/internal/coercion"
	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/ontology"
	"github.com/roach88/warden/internal/patch"
	"github.com/roach88/warden/internal/resolver"
	"github.com/roach88/warden/internal/store"
)

type validateOptions struct {
	CatalogPath   string
	CoercionsPath string
	Workflow      string
	ReportPath    string
	StorePath     string
	EmitPatch     bool
}

// ValidationReport is the JSON document written after every run,
// pass or fail.
type ValidationReport struct {
	OntologyVersion  string                       `json:"ontology_version"`
	Passed           bool                         `json:"passed"`
	Errors           []string                     `json:"errors"`
	StructuredErrors []diag.Diagnostic            `json:"structured_errors"`
	Results          []*resolver.ValidationResult `json:"results"`
	Suggestions      []binding.Suggestion         `json:"suggestions,omitempty"`
}

func newValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <ontology.yaml>",
		Short: "Validate workflow definitions against a capability ontology",
		Long: `Validate loads a capability ontology and a workflow catalog, then
checks every workflow (or one named with --workflow) for unknown
capabilities, missing prerequisites, conflicting steps, understated
safety flags, and binding type errors.

A JSON report is always written, pass or fail. With --emit-patch,
coercion-backed type mismatches additionally produce a unified diff
proposing transform steps.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CatalogPath, "catalog", "workflows.yaml",
		"path to the workflow catalog")
	cmd.Flags().StringVar(&opts.CoercionsPath, "coercions", "",
		"path to a coercion rule file (optional)")
	cmd.Flags().StringVar(&opts.Workflow, "workflow", "",
		"validate a single workflow by name")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "warden-report.json",
		"path for the validation report")
	cmd.Flags().StringVar(&opts.StorePath, "store", "",
		"sqlite database recording validation reports (optional)")
	cmd.Flags().BoolVar(&opts.EmitPatch, "emit-patch", false,
		"print a diff proposing transform steps for coercible mismatches")

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *validateOptions, ontologyPath string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout(), cmd.ErrOrStderr(), rootOpts.Verbose)

	formatter.VerboseLog("loading ontology from %s", ontologyPath)
	graph, err := ontology.Load(ontologyPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading ontology", err)
	}
	formatter.VerboseLog("ontology %s: %d capabilities", graph.Version(), len(graph.Nodes()))

	source, err := os.ReadFile(opts.CatalogPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading catalog", err)
	}
	cat, catDiags, err := catalog.LoadBytes(opts.CatalogPath, source)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading catalog", err)
	}

	coercions := coercion.Empty()
	if opts.CoercionsPath != "" {
		coercions, err = coercion.Load(opts.CoercionsPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "loading coercions", err)
		}
		formatter.VerboseLog("loaded %d coercion rules", coercions.Len())
	}

	workflows := cat.Workflows()
	if opts.Workflow != "" {
		wf, ok := cat.Workflow(opts.Workflow)
		if !ok {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("workflow %q not found in %s", opts.Workflow, opts.CatalogPath))
		}
		workflows = []ir.WorkflowDefinition{wf}
	}

	res := resolver.New(graph)
	checker := binding.NewChecker(graph, coercions)

	diags := &diag.List{}
	diags.Merge(catDiags)

	report := &ValidationReport{
		OntologyVersion: graph.Version(),
		Passed:          false,
		Errors:          []string{},
	}
	for i := range workflows {
		wf := workflows[i]
		formatter.VerboseLog("validating workflow %s (%d steps)", wf.Name, len(wf.Steps))
		result, wfDiags := res.ValidateWorkflow(&wf, checker)
		diags.Merge(wfDiags)
		report.Results = append(report.Results, result)
		report.Suggestions = append(report.Suggestions, result.Suggestions...)
	}

	report.Passed = diags.Empty()
	report.Errors = diags.Messages()
	report.StructuredErrors = diags.Items()

	if err := writeReport(opts.ReportPath, report); err != nil {
		return WrapExitError(ExitCommandError, "writing report", err)
	}
	if opts.StorePath != "" {
		if err := recordReports(opts.StorePath, graph.Version(), report); err != nil {
			return WrapExitError(ExitCommandError, "recording report", err)
		}
	}

	if opts.EmitPatch && len(report.Suggestions) > 0 {
		diff := patch.Render(source, cat, report.Suggestions)
		if diff != "" {
			fmt.Fprintln(cmd.OutOrStdout(), diff)
		}
	}

	if !report.Passed {
		if ferr := formatter.Failure("VALIDATION_FAILED", renderFailure(diags), report.StructuredErrors); ferr != nil {
			return WrapExitError(ExitCommandError, "writing output", ferr)
		}
		return NewExitError(ExitFailure,
			fmt.Sprintf("validation failed with %d diagnostics", diags.Len()))
	}
	return formatter.Success(renderValidateSuccess(rootOpts.Format, report))
}

func renderFailure(diags *diag.List) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d diagnostics:", diags.Len())
	for _, m := range diags.Messages() {
		b.WriteString("\n  ")
		b.WriteString(m)
	}
	return b.String()
}

func renderValidateSuccess(format string, report *ValidationReport) interface{} {
	if format == "json" {
		return report
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ok: %d workflows validated against ontology %s",
		len(report.Results), report.OntologyVersion)
	for _, r := range report.Results {
		fmt.Fprintf(&b, "\n  %s: %s", r.Workflow, strings.Join(r.Sequence, " -> "))
		if len(r.Injected) > 0 {
			fmt.Fprintf(&b, " (injected: %s)", strings.Join(r.Injected, ", "))
		}
	}
	if n := len(report.Suggestions); n > 0 {
		fmt.Fprintf(&b, "\n%d coercion suggestions available (rerun with --emit-patch)", n)
	}
	return b.String()
}

func writeReport(path string, report *ValidationReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func recordReports(path, version string, report *ValidationReport) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	for _, r := range report.Results {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := st.PutReport(ctx, version, r.Workflow, r.Sequence, report.Passed, data, now); err != nil {
			return err
		}
	}
	return nil
}
