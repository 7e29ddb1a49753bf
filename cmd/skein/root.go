package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/skein/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "skein",
	Short: "skein plays branching stories written in an ink-like script",
	Long: `skein compiles ink-like scripts (knots, stitches, choices, gathers and
diverts) into a story graph and plays them in the terminal, over HTTP or as
MCP tools.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./skein.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().Bool("debug", false, "Shorthand for --log-level debug")
	rootCmd.PersistentFlags().String("separator", "", "Joins consecutive content lines (default a single space)")
}

// newApp resolves configuration and logging for cmd and binds its streams.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	flags := cmd.Flags()
	opts := cli.GlobalOptions{}
	opts.ConfigPath, _ = flags.GetString("config")
	opts.LogLevel, _ = flags.GetString("log-level")
	opts.LogFormat, _ = flags.GetString("log-format")
	opts.Debug, _ = flags.GetBool("debug")
	opts.Separator, _ = flags.GetString("separator")

	app, err := cli.NewApp(opts)
	if err != nil {
		return nil, err
	}
	app.Stdout = cmd.OutOrStdout()
	app.Stderr = cmd.ErrOrStderr()
	return app, nil
}
