package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tejasvimys/rama-sync/internal/api"
	"github.com/tejasvimys/rama-sync/internal/netmon"
	"github.com/tejasvimys/rama-sync/internal/syncer"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sync daemon",
		Long: `Start the donation sync daemon.

The daemon opens the local SQLite database (creating it if it doesn't
exist), reclaims any donations interrupted mid-sync by a previous crash,
and starts three background loops: the connectivity monitor, the sync
orchestrator, and the local admin API.

Example:
  ramasyncd run
  ramasyncd run --config /etc/ramasync/config.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(rootOpts, cmd)
		},
	}
	return cmd
}

func runDaemon(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	slog.Info("opening database", "path", cfg.Database.Path)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	prober := netmon.NewHTTPProber(cfg.Network.ProbeURL, cfg.ProbeInterval())
	monitor := netmon.New(prober, cfg.ProbeInterval(), cfg.Network.StableProbes)
	monitor.Start(ctx)

	client := newGatewayClient(cfg)
	proc := syncer.NewProcessor(st, client, syncer.WithRecordDelay(cfg.RecordDelay()))
	orch := syncer.NewOrchestrator(st, proc, monitor,
		syncer.WithSyncInterval(cfg.SyncInterval()))
	if err := orch.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start orchestrator", err)
	}
	defer orch.Stop()

	srv := api.NewServer(cfg.API.Listen, st, orch)
	apiErr := make(chan error, 1)
	go func() { apiErr <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Fprintln(cmd.OutOrStdout(), "Sync daemon started.")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	select {
	case sig := <-sigChan:
		slog.Info("received signal, shutting down", "signal", sig)
	case err := <-apiErr:
		if err != nil {
			cancel()
			return WrapExitError(ExitFailure, "admin api error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("admin api shutdown failed", "error", err)
	}

	slog.Info("daemon stopped gracefully")
	return nil
}
