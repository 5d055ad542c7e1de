package cmd

import (
	"fmt"

	"toolshed/internal/tool"

	"github.com/spf13/cobra"
)

func newMoveCmd(root *rootOptions) *cobra.Command {
	var scope, target string

	cmd := &cobra.Command{
		Use:     "move TOOL --to SCOPE",
		Aliases: []string{"mv"},
		Short:   "Move a tool to another scope",
		Long: `Copy a tool into another scope and then delete it from its current one.

The copy is written first. If the original cannot be deleted afterwards the
tool is left in both scopes and the command fails with a message saying so.
Moving into the managed scope is not allowed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := tool.ParseScope(target)
			if err != nil {
				return err
			}
			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}
			t, err := a.lookup(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			return a.report(fmt.Sprintf("move to %s", to), t, a.manager.Move(t, to))
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "scope to look the tool up in")
	cmd.Flags().StringVar(&target, "to", "", "scope to move the tool to")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// conflictReport is the structured output of the conflicts command.
type conflictReport struct {
	ID       string     `json:"id" yaml:"id"`
	Target   tool.Scope `json:"target" yaml:"target"`
	Conflict bool       `json:"conflict" yaml:"conflict"`
}

func newConflictsCmd(root *rootOptions) *cobra.Command {
	var scope, target string

	cmd := &cobra.Command{
		Use:   "conflicts TOOL --to SCOPE",
		Short: "Check whether a move would collide with an existing tool",
		Long: `Report whether the target scope already has a tool of the same kind with
the same display name. Nothing is changed. A target scope without a store
for the tool's kind never conflicts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := tool.ParseScope(target)
			if err != nil {
				return err
			}
			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}
			t, err := a.lookup(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}

			report := conflictReport{ID: t.ID, Target: to, Conflict: a.manager.CheckConflict(t, to)}
			if a.printer.Structured() {
				return a.printer.PrintValue(report)
			}
			if report.Conflict {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: the %s scope already has a %s named %q\n", t.ID, to, t.Kind, t.Name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: no conflict in the %s scope\n", t.ID, to)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", "scope to look the tool up in")
	cmd.Flags().StringVar(&target, "to", "", "scope the tool would move to")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
