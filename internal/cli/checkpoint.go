package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/warden/internal/checkpoint"
	"github.com/roach88/warden/internal/ir"
)

const defaultStatePath = ".warden/checkpoint.json"

func newCheckpointCommand(rootOpts *RootOptions) *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage mutation checkpoints",
		Long: `Checkpoint manages the single-active-checkpoint lifecycle backing
mutating capabilities. A checkpoint is created before a mutation,
reserved and consumed when the mutation runs, and expires on its TTL.
State persists in a JSON file between invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&statePath, "state", defaultStatePath,
		"path to the checkpoint state file")

	cmd.AddCommand(newCheckpointCreateCommand(rootOpts, &statePath))
	cmd.AddCommand(newCheckpointStatusCommand(rootOpts, &statePath))
	cmd.AddCommand(newCheckpointConsumeCommand(rootOpts, &statePath))
	cmd.AddCommand(newCheckpointSweepCommand(rootOpts, &statePath))
	cmd.AddCommand(newCheckpointInvalidateCommand(rootOpts, &statePath))

	return cmd
}

func newCheckpointCreateCommand(rootOpts *RootOptions, statePath *string) *cobra.Command {
	var (
		scope  []string
		reason string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a checkpoint, superseding any active one",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			tracker := checkpoint.NewTracker(*statePath)
			effective := checkpoint.NoTTL
			if cmd.Flags().Changed("ttl") {
				effective = ttl
			}
			ck, err := tracker.Create(scope, reason, effective)
			if err != nil {
				return WrapExitError(ExitCommandError, "creating checkpoint", err)
			}
			return formatter.Success(renderCheckpoint(rootOpts.Format, ck))
		},
	}

	cmd.Flags().StringSliceVar(&scope, "scope", nil,
		"glob patterns the checkpoint covers (empty covers everything)")
	cmd.Flags().StringVar(&reason, "reason", "",
		"why the checkpoint was taken")
	cmd.Flags().DurationVar(&ttl, "ttl", 0,
		"time until expiry (omit for no expiry)")

	return cmd
}

func newCheckpointStatusCommand(rootOpts *RootOptions, statePath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show the active checkpoint and history",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			tracker := checkpoint.NewTracker(*statePath)
			active, ok := tracker.Active()
			history := tracker.History()

			if rootOpts.Format == "json" {
				data := map[string]interface{}{"history": history}
				if ok {
					data["active"] = active
				}
				return formatter.Success(data)
			}

			var b strings.Builder
			if ok {
				b.WriteString("active:\n  ")
				b.WriteString(renderCheckpointLine(active))
			} else {
				b.WriteString("no active checkpoint")
			}
			if len(history) > 0 {
				fmt.Fprintf(&b, "\nhistory (%d):", len(history))
				for _, ck := range history {
					b.WriteString("\n  ")
					b.WriteString(renderCheckpointLine(ck))
				}
			}
			return formatter.Success(b.String())
		},
	}
}

func newCheckpointConsumeCommand(rootOpts *RootOptions, statePath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "consume",
		Short:         "Consume the active checkpoint",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			tracker := checkpoint.NewTracker(*statePath)
			id, ok := tracker.Consume()
			if !ok {
				if ferr := formatter.Failure("CHECKPOINT_REQUIRED",
					"no valid checkpoint to consume", nil); ferr != nil {
					return WrapExitError(ExitCommandError, "writing output", ferr)
				}
				return NewExitError(ExitFailure, "no valid checkpoint to consume")
			}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"consumed": id})
			}
			return formatter.Success(fmt.Sprintf("consumed %s", id))
		},
	}
}

func newCheckpointSweepCommand(rootOpts *RootOptions, statePath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "sweep",
		Short:         "Remove expired checkpoints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			tracker := checkpoint.NewTracker(*statePath)
			n := tracker.ClearExpired()
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]int{"swept": n})
			}
			return formatter.Success(fmt.Sprintf("swept %d expired checkpoints", n))
		},
	}
}

func newCheckpointInvalidateCommand(rootOpts *RootOptions, statePath *string) *cobra.Command {
	return &cobra.Command{
		Use:           "invalidate",
		Short:         "Invalidate all checkpoints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			tracker := checkpoint.NewTracker(*statePath)
			n := tracker.InvalidateAll()
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]int{"invalidated": n})
			}
			return formatter.Success(fmt.Sprintf("invalidated %d checkpoints", n))
		},
	}
}

func newFormatter(rootOpts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return NewOutputFormatter(rootOpts.Format, cmd.OutOrStdout(), cmd.ErrOrStderr(), rootOpts.Verbose)
}

func renderCheckpoint(format string, ck ir.Checkpoint) interface{} {
	if format == "json" {
		return ck
	}
	return renderCheckpointLine(ck)
}

func renderCheckpointLine(ck ir.Checkpoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", ck.ID, ck.Status)
	if len(ck.Scope) > 0 {
		fmt.Fprintf(&b, " scope=%s", strings.Join(ck.Scope, ","))
	}
	if ck.Reason != "" {
		fmt.Fprintf(&b, " reason=%q", ck.Reason)
	}
	if ck.ExpiresAt != nil {
		fmt.Fprintf(&b, " expires=%s", ck.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
