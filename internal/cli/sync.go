package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tejasvimys/rama-sync/internal/syncer"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass now",
		Long: `Run a single sync pass over the eligible queue and exit.

Records interrupted mid-sync by a previous crash are reclaimed first.
Exits 1 if any record failed to sync in this pass.

Example:
  ramasyncd sync
  ramasyncd sync --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
	return cmd
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
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

	reclaimed, err := st.ReclaimInterrupted(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to reclaim interrupted donations", err)
	}
	if reclaimed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Reclaimed %d interrupted donation(s).\n", reclaimed)
	}

	client := newGatewayClient(cfg)
	proc := syncer.NewProcessor(st, client, syncer.WithRecordDelay(cfg.RecordDelay()))

	report, err := proc.RunPass(ctx, func(index, total int, receipt string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Syncing %d of %d (%s)...\n", index, total, receipt)
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "sync pass failed", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(),
			"Attempted %d: %d synced, %d synced without server id, %d failed, %d permanently failed\n",
			report.Attempted, report.Synced, report.SoftSynced, report.Failed, report.Terminal)
	}

	if report.Failed > 0 || report.Terminal > 0 || report.StoreErrors > 0 {
		return NewExitError(ExitFailure, "some donations failed to sync")
	}
	return nil
}
