package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"smartexpense/internal/config"
	"smartexpense/internal/log"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "smartexpense",
	Short: "Personal income and expense tracker",
	Long: `smartexpense records income and expense transactions, summarises them
and offers AI spending tips, CSV and spreadsheet export and JSON backups.

Configuration comes from a TOML file (--config or SMARTEXPENSE_CONFIG),
overridden by environment variables. A .env file in the working directory
is loaded first when present.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
}

// Execute runs the root command with the process arguments.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return 1
	}
	return 0
}

// bootstrap loads configuration and the logger shared by every subcommand.
func bootstrap() (*config.Config, *log.Logger, error) {
	LoadEnvFile()
	if configFile != "" {
		if err := os.Setenv(config.ConfigFileEnv, configFile); err != nil {
			return nil, nil, err
		}
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, SetupLogger(cfg.LogLevel), nil
}
