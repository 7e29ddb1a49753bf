package main

import (
	"github.com/aretw0/skein/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <story>",
	Short: "Compile a story and report diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}

		opts := cli.ValidateOptions{Path: args[0]}
		opts.Strict, _ = cmd.Flags().GetBool("strict")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		return app.Validate(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Fail when the compiler reports diagnostics")
	validateCmd.Flags().BoolP("watch", "w", false, "Re-validate whenever the story changes")
}
