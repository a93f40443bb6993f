package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/islands/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦┌─┐┬  ┌─┐┌┐┌┌┬┐┌─┐
  ║└─┐│  ├─┤│││ ││└─┐
  ╩└─┘┴─┘┴ ┴┘└┘─┴┘└─┘
`

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "islands",
		Short: "Compile island components and wire their renderers",
		Long: `Islands compiles .island and .md components into JavaScript modules
and stylesheets, and wires the configured UI renderers into the
generated runtime helper.

  • Production builds to disk or S3
  • Dev server with hot module reload
  • Prometheus metrics and OpenTelemetry spans per operation`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		devCmd(),
		buildCmd(),
		compileCmd(),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// newLogger returns the CLI logger; --verbose enables debug output.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
