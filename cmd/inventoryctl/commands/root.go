package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dealer-inventory/internal/config"
	"dealer-inventory/internal/logging"
	"dealer-inventory/internal/logging/adapters"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the inventoryctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "inventoryctl",
		Short:         "inventoryctl scrapes, extracts and queries dealer inventory without running the server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "The YAML configuration file.")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Minimum log level written to stderr.")

	cmd.AddCommand(newScrapeCmd(opts), newExtractCmd(opts), newQueryCmd())
	return cmd
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *rootOptions) load() (*config.Config, logging.Logger, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, o.logger(), nil
}

func (o *rootOptions) logger() logging.Logger {
	logger := logging.NewMultiLogger()
	logger.SetLevel(logging.ParseLogLevel(o.logLevel))
	_ = logger.AddAdapter(adapters.NewStdoutAdapter("cli", adapters.StdoutConfig{
		Format: "text",
		Stream: "stderr",
	}))
	return logger
}
