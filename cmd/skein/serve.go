package main

import (
	"fmt"

	"github.com/aretw0/skein/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the story library over HTTP",
	Long: `Starts the HTTP API over the story library. Sessions are kept in the
configured store and Prometheus metrics are exposed on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		opts := cli.ServeOptions{}
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.Library, _ = cmd.Flags().GetString("library")
		opts.Ready = func(addr string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "skein server listening on %s\n", addr)
		}
		return app.Serve(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (default from config, :8080)")
	serveCmd.Flags().StringP("library", "l", "", "Directory of story documents (default from config)")
}
