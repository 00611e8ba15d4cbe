package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	OlderThanDays int
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete old synced donations",
		Long: `Delete synced donations older than the given age. Unsynced
donations are never purged; they stay until they reach the server or are
deleted explicitly.

Example:
  ramasyncd purge --older-than 90`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.OlderThanDays, "older-than", 90, "minimum age in days")

	return cmd
}

func runPurge(opts *PurgeOptions, cmd *cobra.Command) error {
	if opts.OlderThanDays < 1 {
		return NewExitError(ExitCommandError, "--older-than must be at least 1 day")
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

	cutoff := time.Now().AddDate(0, 0, -opts.OlderThanDays)
	n, err := st.DeleteSyncedOlderThan(cmd.Context(), cutoff)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to purge donations", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d synced donation(s) older than %d days.\n",
		n, opts.OlderThanDays)
	return nil
}
