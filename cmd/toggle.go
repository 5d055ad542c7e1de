package cmd

import (
	"github.com/spf13/cobra"
)

func newToggleCmd(root *rootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "toggle TOOL",
		Short: "Enable a disabled tool or disable an enabled one",
		Long: `Flip a tool between enabled and disabled in the scope that defines it.

Skills, commands and prompts are renamed to or from a ".disabled" name,
servers get a "disabled" field, and hooks move between the active and the
disabled hook containers of their settings file. Every change is validated
and the previous file is backed up first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}
			t, err := a.lookup(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			return a.report("toggle", t, a.manager.Toggle(t))
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "scope to look the tool up in")
	return cmd
}
