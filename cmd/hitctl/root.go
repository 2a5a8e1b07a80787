package main

import (
	"fmt"
	"os"

	"github.com/georgfedermann/hit2assext/pkg/config"
	"github.com/spf13/cobra"
)

// newRootCmd builds the hitctl command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hitctl",
		Short:         "hitctl operates the render-session pool",
		Long:          `hitctl runs the admin server and sweeper of the render-session pool and inspects snapshots of sessions that left it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or TOML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a KEY=VALUE file loaded into the environment")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd(), newSessionCmd(), newVersionCmd())
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration from the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return config.Config{}, err
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}
