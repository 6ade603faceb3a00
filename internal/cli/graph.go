package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/ontology"
)

type graphOptions struct {
	Node   string
	Layer  string
	Unsafe bool
}

// nodeDetail is the JSON shape for a single capability lookup.
type nodeDetail struct {
	ir.CapabilityNode
	Requires        []string `json:"requires,omitempty"`
	RequiredBy      []string `json:"required_by,omitempty"`
	SoftRequires    []string `json:"soft_requires,omitempty"`
	Precedes        []string `json:"precedes,omitempty"`
	PrecededBy      []string `json:"preceded_by,omitempty"`
	ConflictsWith   []string `json:"conflicts_with,omitempty"`
	Alternatives    []string `json:"alternatives,omitempty"`
	Generalizes     []string `json:"generalizes,omitempty"`
	Specializations []string `json:"specializations,omitempty"`
}

func newGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &graphOptions{}

	cmd := &cobra.Command{
		Use:   "graph <ontology.yaml>",
		Short: "Inspect a capability ontology",
		Long: `Graph loads an ontology and answers queries about it: the full
capability listing by layer, a single node with all of its edges, the
members of one layer, or the set of capabilities that demand a
checkpoint before running.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Node, "node", "",
		"show one capability and its edges")
	cmd.Flags().StringVar(&opts.Layer, "layer", "",
		"list capabilities in one layer")
	cmd.Flags().BoolVar(&opts.Unsafe, "checkpoint-required", false,
		"list capabilities that require a valid checkpoint")

	return cmd
}

func runGraph(rootOpts *RootOptions, opts *graphOptions, ontologyPath string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout(), cmd.ErrOrStderr(), rootOpts.Verbose)

	graph, err := ontology.Load(ontologyPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading ontology", err)
	}

	switch {
	case opts.Node != "":
		node, ok := graph.Node(opts.Node)
		if !ok {
			return NewExitError(ExitFailure,
				fmt.Sprintf("capability %q not found in ontology %s", opts.Node, graph.Version()))
		}
		detail := nodeDetail{
			CapabilityNode:  node,
			Requires:        graph.Requires(node.ID),
			RequiredBy:      graph.RequiredBy(node.ID),
			SoftRequires:    graph.SoftRequires(node.ID),
			Precedes:        graph.Precedes(node.ID),
			PrecededBy:      graph.PrecededBy(node.ID),
			ConflictsWith:   graph.ConflictsWith(node.ID),
			Alternatives:    graph.Alternatives(node.ID),
			Generalizes:     graph.Generalizes(node.ID),
			Specializations: graph.Specializations(node.ID),
		}
		return formatter.Success(renderNode(rootOpts.Format, detail))

	case opts.Layer != "":
		if _, ok := graph.LayerIndex(opts.Layer); !ok {
			return NewExitError(ExitFailure,
				fmt.Sprintf("layer %q not found in ontology %s", opts.Layer, graph.Version()))
		}
		ids := graph.NodesInLayer(opts.Layer)
		if rootOpts.Format == "json" {
			return formatter.Success(map[string]interface{}{"layer": opts.Layer, "capabilities": ids})
		}
		return formatter.Success(fmt.Sprintf("%s: %s", opts.Layer, strings.Join(ids, ", ")))

	case opts.Unsafe:
		ids := graph.CheckpointRequired()
		if rootOpts.Format == "json" {
			return formatter.Success(map[string]interface{}{"checkpoint_required": ids})
		}
		return formatter.Success(strings.Join(ids, "\n"))
	}

	return formatter.Success(renderSummary(rootOpts.Format, graph))
}

func renderNode(format string, detail nodeDetail) interface{} {
	if format == "json" {
		return detail
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (layer %s, risk %s)", detail.ID, detail.Layer, detail.Risk)
	if detail.Description != "" {
		fmt.Fprintf(&b, "\n  %s", detail.Description)
	}
	var flags []string
	if detail.Mutating {
		flags = append(flags, "mutating")
	}
	if detail.RequiresCheckpoint {
		flags = append(flags, "requires_checkpoint")
	}
	if detail.RequiresApproval {
		flags = append(flags, "requires_approval")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, "\n  flags: %s", strings.Join(flags, ", "))
	}
	edgeLine(&b, "requires", detail.Requires)
	edgeLine(&b, "required by", detail.RequiredBy)
	edgeLine(&b, "soft requires", detail.SoftRequires)
	edgeLine(&b, "precedes", detail.Precedes)
	edgeLine(&b, "preceded by", detail.PrecededBy)
	edgeLine(&b, "conflicts with", detail.ConflictsWith)
	edgeLine(&b, "alternatives", detail.Alternatives)
	edgeLine(&b, "generalizes", detail.Generalizes)
	edgeLine(&b, "specializations", detail.Specializations)
	return b.String()
}

func edgeLine(b *strings.Builder, label string, ids []string) {
	if len(ids) > 0 {
		fmt.Fprintf(b, "\n  %s: %s", label, strings.Join(ids, ", "))
	}
}

func renderSummary(format string, graph *ontology.Graph) interface{} {
	if format == "json" {
		layers := make([]map[string]interface{}, 0, len(graph.Layers()))
		for _, layer := range graph.Layers() {
			layers = append(layers, map[string]interface{}{
				"layer":        layer,
				"capabilities": graph.NodesInLayer(layer),
			})
		}
		return map[string]interface{}{
			"ontology_version": graph.Version(),
			"layers":           layers,
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ontology %s: %d capabilities in %d layers",
		graph.Version(), len(graph.Nodes()), len(graph.Layers()))
	for _, layer := range graph.Layers() {
		fmt.Fprintf(&b, "\n  %-12s %s", layer, strings.Join(graph.NodesInLayer(layer), ", "))
	}
	return b.String()
}
