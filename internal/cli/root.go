// Package cli implements the warden command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string
}

// ValidFormats lists the accepted values for --format.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the warden root command with all subcommands
// attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "warden",
		Short: "Capability ontology and workflow validation toolkit",
		Long: `warden validates agent workflows against a capability ontology,
synthesizes safety-complete execution plans, and manages mutation
checkpoints.

Workflows reference capabilities from a versioned ontology. Validation
checks dependency closure, binding types, and declared safety flags;
planning orders capabilities and injects checkpoint and audit steps
where the ontology demands them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if opts.Format == f {
					return nil
				}
			}
			return NewExitError(ExitCommandError,
				fmt.Sprintf("invalid format %q (valid: text, json)", opts.Format))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"enable verbose progress output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text",
		"output format (text or json)")

	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newPlanCommand(opts))
	cmd.AddCommand(newGraphCommand(opts))
	cmd.AddCommand(newCheckpointCommand(opts))

	return cmd
}
