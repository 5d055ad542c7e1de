package cmd

import (
	"fmt"
	"path/filepath"

	"toolshed/internal/cli"
	"toolshed/internal/diff"
	"toolshed/internal/jsonc"
	"toolshed/internal/lifecycle"
	"toolshed/internal/store"
	"toolshed/internal/tool"
	"toolshed/pkg/logging"

	"github.com/spf13/cobra"
)

func newRepairCmd(root *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair PATH",
		Short: "Fix a settings or server file that no longer parses",
		Long: `Rewrite a broken JSON settings or server file as valid JSON. Missing quotes,
brackets and commas are added where they can be inferred; comments are
dropped. Files that already parse are left alone.

The changes are printed as a diff. With --dry-run nothing is written;
otherwise the file is backed up and replaced. Managed stores are read-only
and can only be inspected with --dry-run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if store.IsSecondaryFormat(path) {
				return fmt.Errorf("%s: repair only handles JSON files", path)
			}
			a, err := root.newApp(cmd)
			if err != nil {
				return err
			}
			if !dryRun && a.managedStore(path) {
				return &lifecycle.PolicyError{Op: "repair", ID: path, Scope: tool.ScopeManaged}
			}

			res := a.files.ReadText(path)
			if err := res.Err(); err != nil {
				return err
			}
			if !res.Present {
				return fmt.Errorf("%s does not exist", path)
			}
			out := cmd.OutOrStdout()
			if _, err := jsonc.ParseObject([]byte(res.Data)); err == nil {
				fmt.Fprintf(out, "%s parses; nothing to repair\n", path)
				return nil
			}

			repaired, err := jsonc.Repair([]byte(res.Data))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if _, err := jsonc.ParseObject(repaired); err != nil {
				return fmt.Errorf("%s: repaired content is still unusable: %w", path, err)
			}

			d := diff.NewGenerator(diffContext).Unified(res.Data, string(repaired), filepath.Base(path))
			fmt.Fprint(out, d.Unified)
			if dryRun {
				return nil
			}

			if a.backups != nil {
				if err := a.backups.Snapshot(path); err != nil {
					return fmt.Errorf("backup failed, %s not changed: %w", path, err)
				}
			}
			if err := a.files.WriteText(path, string(repaired)); err != nil {
				return err
			}
			logging.Info("CLI", "Repaired %s (+%d -%d)", path, d.Added, d.Deleted)
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("repaired %s", path)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the diff without writing")
	return cmd
}
