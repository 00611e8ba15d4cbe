package cli

import (
	"github.com/tejasvimys/rama-sync/internal/config"
	"github.com/tejasvimys/rama-sync/internal/gateway"
	"github.com/tejasvimys/rama-sync/internal/store"
)

// loadConfig loads the configuration for a command, mapping failures to
// command-error exit codes.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openStore opens the donation database named by the config.
func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newGatewayClient builds the submission client from the config.
func newGatewayClient(cfg config.Config) *gateway.Client {
	return gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token, cfg.GatewayTimeout())
}
