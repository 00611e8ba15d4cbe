package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

// StatusSummary is the status command's payload.
type StatusSummary struct {
	Pending     int    `json:"pending"`
	Syncing     int    `json:"syncing"`
	Synced      int    `json:"synced"`
	Failed      int    `json:"failed"`
	Permanent   int    `json:"failedPermanent"`
	TotalAmount string `json:"totalAmount"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and totals",
		Long: `Show how many donations sit in each sync state, plus the total
amount recorded locally.

Example:
  ramasyncd status
  ramasyncd status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	var sum StatusSummary
	for _, c := range []struct {
		status donation.Status
		dst    *int
	}{
		{donation.StatusPending, &sum.Pending},
		{donation.StatusSyncing, &sum.Syncing},
		{donation.StatusSynced, &sum.Synced},
		{donation.StatusFailed, &sum.Failed},
		{donation.StatusFailedPermanent, &sum.Permanent},
	} {
		n, err := st.CountByStatus(ctx, c.status)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count donations", err)
		}
		*c.dst = n
	}

	total, err := st.TotalAmount(ctx,
		donation.StatusPending,
		donation.StatusSyncing,
		donation.StatusSynced,
		donation.StatusFailed,
		donation.StatusFailedPermanent,
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to total donations", err)
	}
	sum.TotalAmount = total.Text('f')

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(sum)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pending:          %d\n", sum.Pending)
	fmt.Fprintf(out, "Syncing:          %d\n", sum.Syncing)
	fmt.Fprintf(out, "Synced:           %d\n", sum.Synced)
	fmt.Fprintf(out, "Failed:           %d\n", sum.Failed)
	fmt.Fprintf(out, "Failed (final):   %d\n", sum.Permanent)
	fmt.Fprintf(out, "Total amount:     %s\n", sum.TotalAmount)
	return nil
}
