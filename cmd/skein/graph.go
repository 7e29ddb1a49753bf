package main

import (
	"github.com/aretw0/skein/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <story>",
	Short: "Export the story graph",
	Long:  `Prints the compiled graph as a Mermaid flowchart (default) or as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		opts := cli.GraphOptions{Path: args[0]}
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.SessionID, _ = cmd.Flags().GetString("session")
		return app.Graph(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or json")
	graphCmd.Flags().StringP("session", "s", "", "Highlight the progress of a saved session")
}
