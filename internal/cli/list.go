package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tejasvimys/rama-sync/internal/donation"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Status string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally recorded donations",
		Long: `List donations in the local database, newest first.

Example:
  ramasyncd list
  ramasyncd list --status failed
  ramasyncd list --status pending --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by sync status (pending|syncing|synced|failed|failed_permanent)")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var recs []*donation.Record
	if opts.Status != "" {
		status := donation.Status(opts.Status)
		if !status.Valid() {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown sync status %q", opts.Status))
		}
		recs, err = st.ListByStatus(cmd.Context(), status)
	} else {
		recs, err = st.ListAll(cmd.Context())
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list donations", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No donations recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIPT\tDONOR\tAMOUNT\tSTATUS\tATTEMPTS\tERROR")
	for _, rec := range recs {
		donor := rec.DonorName
		if rec.IsOrganization {
			donor = rec.OrganizationName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.ReceiptNumber, donor, rec.Amount.Text('f'),
			rec.SyncStatus.Display(), rec.SyncAttempts, rec.ErrorMessage)
	}
	return w.Flush()
}
