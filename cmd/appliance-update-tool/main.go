package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/appliance-update-tool/internal/config"
	"github.com/open-edge-platform/appliance-update-tool/internal/utils/logger"
)

// Persistent command flags
var (
	configFile string
	logLevel   string
	verbose    bool
)

func main() {
	if err := createRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// createRootCommand builds the command tree
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "appliance-update-tool",
		Short: "Finds and installs updates for appliance packages",
		Long: `appliance-update-tool compares the packages installed on an appliance
with the vendor and community catalogs, reports every item that has a newer
compatible artifact and lets you pick which updates to install.

The base OS image is checked and reported but never installed automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to the configuration file (default: "+config.DefaultConfigPath+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn or error (overrides the configuration file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging (same as --log-level debug)")

	rootCmd.AddCommand(createCheckCommand())
	rootCmd.AddCommand(createVersionCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// resolveRequestedLogLevel returns the level asked for on the command line,
// or "" to keep the configured one.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
		return "debug"
	}
	return ""
}

// attachLoggingHooks loads the configuration and initialises logging before
// every subcommand runs.
func attachLoggingHooks(root *cobra.Command) {
	for _, sub := range root.Commands() {
		sub.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
			return initConfigAndLogging(cmd)
		}
	}
}

func initConfigAndLogging(cmd *cobra.Command) error {
	cfg, err := config.LoadGlobalConfig(configFile)
	if err != nil {
		return err
	}

	level := resolveRequestedLogLevel(cmd)
	if level == "" {
		level = config.NewConfigHelpers(cfg).LogLevel()
	}
	if _, err := logger.Init(level); err != nil {
		return err
	}
	cfg.Logging.Level = logger.Level()
	config.SetGlobal(cfg)

	if configFile != "" {
		logger.Logger().Debugf("using configuration %s", configFile)
	}
	return nil
}
