package cmd

import (
	"github.com/spf13/cobra"
)

func newRemoveCmd(root *rootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:     "remove TOOL",
		Aliases: []string{"rm"},
		Short:   "Delete a tool from its scope",
		Long: `Delete a tool from the scope that defines it. The file, directory or
settings entry is backed up first; see "toolshed backups".`,
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
			return a.report("remove", t, a.manager.Remove(t))
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "scope to look the tool up in")
	return cmd
}
