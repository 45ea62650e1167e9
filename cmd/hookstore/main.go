package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	herrors "github.com/vango-dev/hookstore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		herrors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hookstore",
		Short: "Global state stores for component UIs",
		Long: `hookstore runs a store registry with a devtools inspector.

The inspector lists stores, shows their state, accepts dispatches
and streams every update over a websocket. Prometheus metrics and
OpenTelemetry spans are available through hookstore.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
