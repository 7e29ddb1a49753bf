package main

import (
	"github.com/spf13/cobra"
)

var storiesCmd = &cobra.Command{
	Use:   "stories [library]",
	Short: "List the stories of a library",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		return app.Stories(cmd.Context(), path)
	},
}

func init() {
	rootCmd.AddCommand(storiesCmd)
}
