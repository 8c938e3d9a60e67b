package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is a hierarchical state machine engine",
	Long: `Arbor routes typed events through a hierarchy of states and superstates.
It ships with the number-squaring demo machine, an HTTP surface and a graph exporter.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, &cfg); err != nil {
			return err
		}

		level, _ := logging.ParseLevel(cfg.Log.Level)
		format, _ := logging.ParseFormat(cfg.Log.Format)
		logger = logging.New(level, format)
		return nil
	},
}

// applyFlags lets explicit flags win over file and environment.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		c.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("unhandled") {
		c.Machine.Unhandled, _ = flags.GetString("unhandled")
	}
	if flags.Changed("quiet") {
		quiet, _ := flags.GetBool("quiet")
		c.Trace.Console = !quiet
	}
	return c.Validate()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (ARBOR_* variables override it)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("unhandled", "ignore", "Unhandled event policy: ignore, log or fail")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Do not print the dispatch trace")
}
