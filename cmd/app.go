package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"toolshed/internal/cli"
	"toolshed/internal/config"
	"toolshed/internal/lifecycle"
	"toolshed/internal/mutate"
	"toolshed/internal/scan"
	"toolshed/internal/schema"
	"toolshed/internal/store"
	"toolshed/internal/tool"
	"toolshed/pkg/logging"

	"github.com/spf13/cobra"
)

// errBackupsDisabled is returned by backup commands when config.yaml
// turns snapshots off.
var errBackupsDisabled = errors.New("backups are disabled in the configuration")

// app is the wired component graph a command runs against.
type app struct {
	layout    *config.Layout
	files     *store.FileStore
	backups   *store.DirBackup
	inventory *scan.Inventory
	manager   *lifecycle.Manager
	printer   *cli.Printer
	stderr    io.Writer
}

// newApp loads the configuration and builds the component graph.
func (o *rootOptions) newApp(cmd *cobra.Command) (*app, error) {
	format, err := cli.ParseOutputFormat(o.output)
	if err != nil {
		return nil, err
	}

	configPath := o.configPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	projectDir := o.projectDir
	if projectDir == "" {
		if projectDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("determine project directory: %w", err)
		}
	}
	layout, err := config.NewLayout(cfg, projectDir)
	if err != nil {
		return nil, err
	}

	files := store.NewFileStore()
	validator := schema.NewJSONSchemaValidator()

	var backup store.Backup = store.NopBackup{}
	var dirBackup *store.DirBackup
	if !layout.BackupDisabled() {
		dirBackup = store.NewDirBackup(layout.BackupDir(), layout.BackupKeep())
		backup = dirBackup
	} else {
		logging.Debug("CLI", "Backups are disabled")
	}

	pipeline := mutate.New(files, validator, backup)
	inventory := scan.NewInventory(files, layout, validator)
	out := cmd.OutOrStdout()

	return &app{
		layout:    layout,
		files:     files,
		backups:   dirBackup,
		inventory: inventory,
		manager:   lifecycle.NewManager(files, pipeline, backup, inventory),
		printer:   cli.NewPrinter(out, format, o.noHeaders, useColor(out, o.noColor)),
		stderr:    cmd.ErrOrStderr(),
	}, nil
}

// useColor reports whether out is a terminal that should get colors.
func useColor(out io.Writer, disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// lookup resolves a tool reference. A reference starting with a scope name
// is a tool ID; anything else is a canonical key, narrowed by scope when
// given and otherwise resolved to the effective definition.
func (a *app) lookup(ctx context.Context, ref, scope string) (tool.Tool, error) {
	var sc tool.Scope
	if scope != "" {
		var err error
		if sc, err = tool.ParseScope(scope); err != nil {
			return tool.Tool{}, err
		}
	}

	var (
		t     tool.Tool
		found bool
		err   error
	)
	if isToolID(ref) {
		t, found, err = a.inventory.Find(ctx, ref)
		if found && sc != "" && t.Scope != sc {
			return tool.Tool{}, fmt.Errorf("tool %s is in the %s scope, not %s", ref, t.Scope, sc)
		}
	} else {
		t, found, err = a.inventory.FindByKey(ctx, ref, sc)
	}
	if err != nil {
		return tool.Tool{}, err
	}
	if !found {
		if sc != "" {
			return tool.Tool{}, fmt.Errorf("tool %q not found in the %s scope", ref, sc)
		}
		return tool.Tool{}, fmt.Errorf("tool %q not found", ref)
	}
	return t, nil
}

// managedStore reports whether path is, or lies inside, one of the
// managed scope's stores.
func (a *app) managedStore(path string) bool {
	candidates := []string{filepath.Clean(path)}
	if real, err := filepath.EvalSymlinks(path); err == nil {
		candidates = append(candidates, real)
	}
	for _, kind := range tool.AllKinds {
		store, ok := a.layout.Path(tool.ScopeManaged, kind)
		if !ok {
			continue
		}
		stores := []string{filepath.Clean(store)}
		if real, err := filepath.EvalSymlinks(store); err == nil {
			stores = append(stores, real)
		}
		for _, c := range candidates {
			for _, s := range stores {
				if c == s || strings.HasPrefix(c, s+string(filepath.Separator)) {
					return true
				}
			}
		}
	}
	return false
}

func isToolID(ref string) bool {
	first, _, ok := strings.Cut(ref, ":")
	if !ok {
		return false
	}
	_, err := tool.ParseScope(first)
	return err == nil
}

// report prints a lifecycle result and turns a failure into an error.
func (a *app) report(op string, t tool.Tool, res lifecycle.Result) error {
	if err := a.printer.PrintResult(op, t.ID, res); err != nil {
		return err
	}
	if !res.Success {
		return &operationError{op: op, id: t.ID, result: res}
	}
	return nil
}
