// Command wastedash-cli imports raw waste records, writes local snapshots
// and reports how a source would be cleaned.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wastedash/internal/backend"
	"wastedash/internal/cli"
	"wastedash/internal/config"
	"wastedash/internal/log"
)

// env is the bootstrap shared by every subcommand.
type env struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:           "wastedash-cli",
		Short:         "Waste dashboard maintenance tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envErr := cli.LoadEnvFile()
			e.cfg = config.Load()
			e.logger = cli.SetupLogger(e.cfg, cmd.ErrOrStderr())
			if envErr != nil {
				e.logger.Warn("Ignoring env file", log.FieldError, envErr)
			}
			if err := e.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
	}
	cmd.AddCommand(newImportCmd(e), newReportCmd(e), newValidateCmd(e))
	return cmd
}

func (e *env) backend(cmd *cobra.Command) (*backend.Result, error) {
	res, err := backend.NewFactory(e.logger).Create(cmd.Context(), e.cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", e.cfg.DataBackend, err)
	}
	return res, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
