package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/franksops/memstress/config"
)

var (
	cfgFile       string
	flagDebug     bool
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "memstress",
	Short: "Checksummed memory stress tool",
	Long: `memstress fills memory regions with data patterns, then copies and
verifies them with an inline checksum for a configurable number of
iterations. Any disagreement between the checksum taken while the words
moved and the checksum of the data at rest is recorded as a mismatch.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json")
}

// loadConfig resolves the run profile: file and environment first, then any
// persistent flags the user set on this invocation.
func loadConfig(cmd *cobra.Command) (config.RunConfig, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.RunConfig{}, err
	}

	if cmd.Flags().Changed("debug") {
		cfg.Debug = flagDebug
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}

	if err := cfg.Validate(); err != nil {
		return config.RunConfig{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.RunConfig) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}
