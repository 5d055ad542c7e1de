package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"toolshed/internal/cli"
	"toolshed/internal/diff"
	"toolshed/internal/store"

	"github.com/spf13/cobra"
)

// diffContext is the number of unchanged lines shown around each change.
const diffContext = 3

func newBackupsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List, inspect and restore snapshots taken before changes",
		Long: `Every file or directory toolshed overwrites or deletes is snapshotted
first. PATH is the settings file, server file or tool directory that was
changed; "toolshed show" prints it as the tool's source.`,
	}
	cmd.AddCommand(newBackupsListCmd(root), newBackupsDiffCmd(root), newBackupsRestoreCmd(root))
	return cmd
}

func newBackupsListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list PATH",
		Short: "List the snapshots of a path, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, path, err := backupTarget(root, cmd, args[0])
			if err != nil {
				return err
			}
			snaps, err := a.backups.List(path)
			if err != nil {
				return err
			}
			return a.printer.PrintSnapshots(snaps)
		},
	}
}

func newBackupsDiffCmd(root *rootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "diff PATH",
		Short: "Show what changed since a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, path, err := backupTarget(root, cmd, args[0])
			if err != nil {
				return err
			}
			snap, err := findSnapshot(a.backups, path, id)
			if err != nil {
				return err
			}
			if snap.IsDirectory {
				return fmt.Errorf("snapshot %s is a directory; diff only compares files", snap.ID)
			}

			old := a.files.ReadText(snap.ContentPath())
			if err := old.Err(); err != nil {
				return err
			}
			current := a.files.ReadText(path)
			if err := current.Err(); err != nil {
				return err
			}

			d := diff.NewGenerator(diffContext).Unified(old.Data, current.Data, filepath.Base(path))
			if d.Empty() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is unchanged since snapshot %s\n", path, snap.ID)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), d.Unified)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "snapshot ID or unique ID prefix (default is the newest)")
	return cmd
}

func newBackupsRestoreCmd(root *rootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "restore PATH",
		Short: "Put a snapshot back in place",
		Long: `Write a snapshot back to its original location. The current content is
snapshotted first, so a restore can itself be restored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, path, err := backupTarget(root, cmd, args[0])
			if err != nil {
				return err
			}
			snap, err := findSnapshot(a.backups, path, id)
			if err != nil {
				return err
			}
			if err := a.backups.Restore(snap); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("restored %s from snapshot %s", snap.Path, snap.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "snapshot ID or unique ID prefix (default is the newest)")
	return cmd
}

func backupTarget(root *rootOptions, cmd *cobra.Command, arg string) (*app, string, error) {
	a, err := root.newApp(cmd)
	if err != nil {
		return nil, "", err
	}
	if a.backups == nil {
		return nil, "", errBackupsDisabled
	}
	path, err := filepath.Abs(arg)
	if err != nil {
		return nil, "", err
	}
	return a, path, nil
}

// findSnapshot returns the newest snapshot of path, or the one whose ID
// starts with id.
func findSnapshot(b *store.DirBackup, path, id string) (store.Snapshot, error) {
	if id == "" {
		snap, ok, err := b.Latest(path)
		if err != nil {
			return store.Snapshot{}, err
		}
		if !ok {
			return store.Snapshot{}, fmt.Errorf("no backups of %s", path)
		}
		return snap, nil
	}

	snaps, err := b.List(path)
	if err != nil {
		return store.Snapshot{}, err
	}
	var matches []store.Snapshot
	for _, s := range snaps {
		if strings.HasPrefix(s.ID, id) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return store.Snapshot{}, fmt.Errorf("no backup of %s with ID %q", path, id)
	case 1:
		return matches[0], nil
	}
	return store.Snapshot{}, fmt.Errorf("backup ID %q is ambiguous for %s (%d matches)", id, path, len(matches))
}
