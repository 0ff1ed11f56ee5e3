package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/beaconops/crashkit/logger"

	_ "github.com/beaconops/crashkit/adapter/sentry"
	_ "github.com/beaconops/crashkit/adapter/telegram"
)

// Version information (set by build flags)
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	CommitSHA = "unknown"
)

var (
	logLevel string
	noColor  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crashkit",
		Short: "crashkit - error reporting toolkit",
		Long: `crashkit ships errors from web applications to a reporting sink.

migrate rewrites a codebase from a provider SDK to the crashkit API;
check verifies the sink configured in the environment.`,
		Version: fmt.Sprintf("%s (built: %s, commit: %s)", Version, BuildTime, CommitSHA),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	slog.SetDefault(logger.New(logger.Options{
		Env:          os.Getenv("CRASHKIT_ENVIRONMENT"),
		ConsoleLevel: logLevel,
		App:          "crashkit",
		NoColor:      noColor,
	}))
	if noColor {
		color.NoColor = true
	}
}
