package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tejasvimys/rama-sync/internal/store"
)

// RetryOptions holds flags for the retry command.
type RetryOptions struct {
	*RootOptions
	All bool
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RetryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "retry [donation-id]",
		Short: "Re-queue failed donations",
		Long: `Return failed donations to the pending queue with a fresh attempt
counter. This is the only way a permanently failed donation re-enters
the queue.

Example:
  ramasyncd retry 01937ad1-53a2-7cc0-8001-2f4a9d1c6b3e
  ramasyncd retry --all`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetry(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "retry every failed donation")

	return cmd
}

func runRetry(opts *RetryOptions, args []string, cmd *cobra.Command) error {
	if opts.All == (len(args) == 1) {
		return NewExitError(ExitCommandError, "provide either a donation id or --all")
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()

	if opts.All {
		n, err := st.ResetAllFailed(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to retry donations", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Re-queued %d donation(s).\n", n)
		return nil
	}

	if err := st.ResetForRetry(ctx, args[0]); err != nil {
		if store.IsNotFound(err) {
			return WrapExitError(ExitFailure, "donation not found or already synced", err)
		}
		return WrapExitError(ExitCommandError, "failed to retry donation", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Re-queued donation %s.\n", args[0])
	return nil
}
