package main

import (
	"github.com/aretw0/skein/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the story library as MCP tools",
	Long: `Exposes list_stories, start_story, choose, get_session, reset_session and
get_graph to MCP clients, over stdio (default) or SSE.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		opts := cli.MCPOptions{}
		opts.Transport, _ = cmd.Flags().GetString("transport")
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.Library, _ = cmd.Flags().GetString("library")
		return app.MCP(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().StringP("addr", "a", "", "Address for the sse transport (default from config)")
	mcpCmd.Flags().StringP("library", "l", "", "Directory of story documents (default from config)")
}
