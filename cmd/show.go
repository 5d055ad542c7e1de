package cmd

import (
	"github.com/spf13/cobra"
)

func newShowCmd(root *rootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "show TOOL",
		Short: "Show one tool in detail",
		Long: `Show one tool in detail, including the scopes that also define it.

TOOL is either a tool ID such as "project:skill:pdf" or a canonical key such
as "skill:pdf" or "hook:PreToolUse:Bash". A canonical key resolves to the
effective definition unless --scope is given.`,
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
			return a.printer.PrintTool(t)
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "scope to look the tool up in")
	return cmd
}
