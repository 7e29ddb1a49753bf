package main

import (
	"github.com/aretw0/skein/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <story>",
	Short: "Play a story interactively",
	Long: `Plays the script in the terminal. Type the number of a choice, "reset" to
start over or "quit" to leave. With --session progress is saved to the
configured store and resumed on the next run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		opts := cli.RunOptions{Path: args[0]}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		return app.Run(cmd.Context(), opts, cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Save and resume progress under this session id")
	runCmd.Flags().Bool("fresh", false, "Discard saved progress for --session before starting")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().BoolP("watch", "w", false, "Reload the story when files next to it change")
}
