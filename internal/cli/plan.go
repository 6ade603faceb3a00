package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/ontology"
	"github.com/roach88/warden/internal/resolver"
	"github.com/roach88/warden/internal/store"
)

type planOptions struct {
	Targets   []string
	StorePath string
}

func newPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <ontology.yaml>",
		Short: "Synthesize a safety-complete execution plan for target capabilities",
		Long: `Plan expands the target capabilities through their hard prerequisites,
injects checkpoint and audit steps where the ontology demands them,
and orders the result so every dependency runs before its dependents.

With --store, plans are cached in a sqlite database keyed by ontology
version and target set. A cached plan for the same inputs is returned
without re-synthesis.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Targets, "targets", nil,
		"capability ids to plan for (required)")
	cmd.Flags().StringVar(&opts.StorePath, "store", "",
		"sqlite database caching synthesized plans (optional)")
	cmd.MarkFlagRequired("targets")

	return cmd
}

func runPlan(rootOpts *RootOptions, opts *planOptions, ontologyPath string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout(), cmd.ErrOrStderr(), rootOpts.Verbose)

	graph, err := ontology.Load(ontologyPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading ontology", err)
	}

	var st *store.Store
	if opts.StorePath != "" {
		st, err = store.Open(opts.StorePath)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening store", err)
		}
		defer st.Close()
	}

	ctx := context.Background()
	if st != nil {
		cached, ok, err := st.GetPlan(ctx, graph.Version(), opts.Targets)
		if err != nil {
			return WrapExitError(ExitCommandError, "reading plan cache", err)
		}
		if ok {
			formatter.VerboseLog("plan served from cache")
			return formatter.Success(renderPlan(rootOpts.Format, cached))
		}
	}

	plan, diags := resolver.New(graph).Synthesize(opts.Targets)
	if !diags.Empty() {
		if ferr := formatter.Failure("PLAN_FAILED", renderFailure(diags), diags.Items()); ferr != nil {
			return WrapExitError(ExitCommandError, "writing output", ferr)
		}
		return NewExitError(ExitFailure,
			fmt.Sprintf("planning failed with %d diagnostics", diags.Len()))
	}

	if st != nil {
		if err := st.PutPlan(ctx, plan, time.Now().UTC()); err != nil {
			return WrapExitError(ExitCommandError, "caching plan", err)
		}
	}
	return formatter.Success(renderPlan(rootOpts.Format, plan))
}

func renderPlan(format string, plan *resolver.Plan) interface{} {
	if format == "json" {
		return plan
	}
	var b strings.Builder
	fmt.Fprintf(&b, "plan (ontology %s):\n  %s",
		plan.OntologyVersion, strings.Join(plan.Order, " -> "))
	if len(plan.Injected) > 0 {
		fmt.Fprintf(&b, "\ninjected: %s", strings.Join(plan.Injected, ", "))
	}
	if plan.CycleAnomaly {
		b.WriteString("\nwarning: dependency cycle detected, partial order fell back to layer order")
	}
	return b.String()
}
