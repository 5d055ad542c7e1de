// Package lifecycle is the single entry point for changing tools: toggle,
// remove and move, plus the conflict check a caller runs before moving.
//
// Each public method runs to completion and converts every internal failure
// into a Result. Single-file changes go through the mutation pipeline;
// directory and whole-file kinds use direct store primitives. A move is two
// independent operations, target first, so a failure can leave the tool in
// both scopes but never in neither.
package lifecycle

import (
	"fmt"
	"path/filepath"
	"strings"

	"toolshed/internal/config"
	"toolshed/internal/mutate"
	"toolshed/internal/overlay"
	"toolshed/internal/scan"
	"toolshed/internal/store"
	"toolshed/internal/tool"
	"toolshed/pkg/logging"
)

// Manager orchestrates tool lifecycle operations.
type Manager struct {
	files     *store.FileStore
	pipeline  *mutate.Pipeline
	backup    store.Backup
	layout    *config.Layout
	inventory *scan.Inventory
}

// NewManager wires a Manager. backup is used for directory and whole-file
// removals; the pipeline carries its own backup for structured files.
func NewManager(files *store.FileStore, pipeline *mutate.Pipeline, backup store.Backup, inventory *scan.Inventory) *Manager {
	if backup == nil {
		backup = store.NopBackup{}
	}
	return &Manager{
		files:     files,
		pipeline:  pipeline,
		backup:    backup,
		layout:    inventory.Layout(),
		inventory: inventory,
	}
}

// Toggle flips a tool between enabled and disabled.
func (m *Manager) Toggle(t tool.Tool) Result {
	return m.run("toggle", t, func() error {
		if t.ReadOnly() {
			return &PolicyError{Op: "toggle", ID: t.ID, Scope: t.Scope}
		}
		switch t.Kind {
		case tool.KindSkill:
			return m.renameToggle(t.Source.Directory)
		case tool.KindCommand, tool.KindPrompt:
			return m.renameToggle(t.Source.Path)
		case tool.KindServer:
			return m.mutateServers(t.Scope, t.Source.Path, toggleServer(t.Name), false)
		case tool.KindHook:
			h := t.Hook()
			if h == nil {
				return &RequestError{Message: fmt.Sprintf("%s has no hook data", t.ID)}
			}
			matcher := h.Matcher
			return m.mutateSettings(t.Scope, t.Source.Path, func(doc map[string]any) (map[string]any, error) {
				if h.Stashed {
					return overlay.Enable(doc, h.Event, h.Index, &matcher)
				}
				return overlay.Disable(doc, h.Event, h.Index, &matcher)
			}, false)
		}
		return &RequestError{Message: fmt.Sprintf("unsupported kind %q", t.Kind)}
	})
}

// Remove deletes a tool from its scope after snapshotting what it removes.
func (m *Manager) Remove(t tool.Tool) Result {
	return m.run("remove", t, func() error {
		if t.ReadOnly() {
			return &PolicyError{Op: "remove", ID: t.ID, Scope: t.Scope}
		}
		return m.remove(t)
	})
}

// Move copies a tool to target and then removes it from its current scope.
func (m *Manager) Move(t tool.Tool, target tool.Scope) Result {
	return m.run("move", t, func() error {
		if t.ReadOnly() {
			return &PolicyError{Op: "move", ID: t.ID, Scope: t.Scope}
		}
		if target.ReadOnly() {
			return &PolicyError{Op: "move " + t.ID + " into", ID: string(target), Scope: target}
		}
		if target == t.Scope {
			return &RequestError{Message: fmt.Sprintf("%s is already in the %s scope", t.ID, target)}
		}
		targetPath, ok := m.layout.Path(target, t.Kind)
		if !ok {
			return fmt.Errorf("cannot move %s to %s: %w", t.ID, target, scan.ErrNoStore)
		}

		if err := m.copyTo(t, target, targetPath); err != nil {
			return fmt.Errorf("copy to %s: %w", target, err)
		}
		logging.Info("Lifecycle", "Copied %s to %s scope", t.ID, target)

		if err := m.remove(t); err != nil {
			return fmt.Errorf("copied %s to %s but could not remove it from %s, the tool now exists in both scopes: %w",
				t.ID, target, t.Scope, err)
		}
		return nil
	})
}

// CheckConflict reports whether target already holds a tool of the same
// kind with the same display name. Any read problem, or a target without a
// store for the kind, reports no conflict.
func (m *Manager) CheckConflict(t tool.Tool, target tool.Scope) bool {
	tools, err := m.inventory.ToolsAt(target, t.Kind)
	if err != nil {
		logging.Debug("Lifecycle", "Conflict check for %s at %s skipped: %v", t.ID, target, err)
		return false
	}
	for _, other := range tools {
		if other.Name == t.Name {
			return true
		}
	}
	return false
}

func (m *Manager) run(op string, t tool.Tool, fn func() error) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Error: fmt.Sprintf("%s %s: internal error: %v", op, t.ID, r), Kind: ErrorKindIO}
			logging.Error("Lifecycle", fmt.Errorf("%v", r), "Recovered from panic during %s of %s", op, t.ID)
		}
	}()

	if err := fn(); err != nil {
		logging.Info("Lifecycle", "%s %s failed: %v", op, t.ID, err)
		return failed(err)
	}
	logging.Info("Lifecycle", "%s %s succeeded", op, t.ID)
	return succeeded()
}

// renameToggle flips the disabled suffix on a directory or file name.
func (m *Manager) renameToggle(path string) error {
	if path == "" {
		return &RequestError{Message: "tool has no source path"}
	}
	target := path + scan.DisabledSuffix
	if scan.IsDisabledName(path) {
		target = strings.TrimSuffix(path, scan.DisabledSuffix)
	}
	return m.files.Rename(path, target)
}

func (m *Manager) remove(t tool.Tool) error {
	switch t.Kind {
	case tool.KindSkill:
		dir := t.Source.Directory
		if err := m.backup.Snapshot(dir); err != nil {
			return fmt.Errorf("backup failed, nothing removed: %w", err)
		}
		return m.files.RemoveAll(dir)

	case tool.KindCommand, tool.KindPrompt:
		if err := m.backup.Snapshot(t.Source.Path); err != nil {
			return fmt.Errorf("backup failed, nothing removed: %w", err)
		}
		return m.files.Remove(t.Source.Path)

	case tool.KindServer:
		return m.mutateServers(t.Scope, t.Source.Path, func(entries map[string]any) error {
			if _, ok := entries[t.Name]; !ok {
				return fmt.Errorf("server %q not found in %s", t.Name, t.Source.Path)
			}
			delete(entries, t.Name)
			return nil
		}, false)

	case tool.KindHook:
		h := t.Hook()
		if h == nil {
			return &RequestError{Message: fmt.Sprintf("%s has no hook data", t.ID)}
		}
		matcher := h.Matcher
		return m.mutateSettings(t.Scope, t.Source.Path, func(doc map[string]any) (map[string]any, error) {
			return overlay.Remove(doc, containerOf(h), h.Event, h.Index, &matcher)
		}, false)
	}
	return &RequestError{Message: fmt.Sprintf("unsupported kind %q", t.Kind)}
}

func (m *Manager) copyTo(t tool.Tool, target tool.Scope, targetPath string) error {
	switch t.Kind {
	case tool.KindSkill:
		dst := filepath.Join(targetPath, filepath.Base(t.Source.Directory))
		if m.files.Exists(dst) {
			return fmt.Errorf("%s: %w", dst, ErrConflict)
		}
		if err := m.files.CopyDir(t.Source.Directory, dst); err != nil {
			_ = m.files.RemoveAll(dst)
			return err
		}
		return nil

	case tool.KindCommand, tool.KindPrompt:
		dst := filepath.Join(targetPath, filepath.Base(t.Source.Path))
		if m.files.Exists(dst) {
			return fmt.Errorf("%s: %w", dst, ErrConflict)
		}
		res := m.files.ReadText(t.Source.Path)
		if err := res.Err(); err != nil {
			return err
		}
		if !res.Present {
			return fmt.Errorf("%s no longer exists", t.Source.Path)
		}
		return m.files.WriteText(dst, res.Data)

	case tool.KindServer:
		entry, err := m.currentServer(t)
		if err != nil {
			return err
		}
		return m.mutateServers(target, targetPath, func(entries map[string]any) error {
			if _, exists := entries[t.Name]; exists {
				return fmt.Errorf("server %q in %s: %w", t.Name, targetPath, ErrConflict)
			}
			entries[t.Name] = entry
			return nil
		}, true)

	case tool.KindHook:
		h := t.Hook()
		if h == nil {
			return &RequestError{Message: fmt.Sprintf("%s has no hook data", t.ID)}
		}
		group, err := m.currentHookGroup(t, h)
		if err != nil {
			return err
		}
		return m.mutateSettings(target, targetPath, func(doc map[string]any) (map[string]any, error) {
			return overlay.Append(doc, containerOf(h), h.Event, group)
		}, true)
	}
	return &RequestError{Message: fmt.Sprintf("unsupported kind %q", t.Kind)}
}

// currentServer re-reads the source file so a move carries the entry as it
// is now, not as it was listed.
func (m *Manager) currentServer(t tool.Tool) (map[string]any, error) {
	res := m.files.ReadStructured(t.Source.Path)
	if err := res.Err(); err != nil {
		return nil, err
	}
	entries, _ := res.Data[config.ServersContainer(t.Source.Path)].(map[string]any)
	entry, ok := entries[t.Name].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("server %q not found in %s", t.Name, t.Source.Path)
	}
	return entry, nil
}

func (m *Manager) currentHookGroup(t tool.Tool, h *tool.HookSpec) (map[string]any, error) {
	res := m.files.ReadStructured(t.Source.Path)
	if err := res.Err(); err != nil {
		return nil, err
	}
	groups := overlay.Groups(res.Data, containerOf(h), h.Event)
	if h.Index < 0 || h.Index >= len(groups) {
		return nil, fmt.Errorf("%s: %w", t.ID, overlay.ErrIndexOutOfRange)
	}
	group := groups[h.Index]
	if overlay.Matcher(group) != h.Matcher {
		return nil, fmt.Errorf("%s: %w", t.ID, overlay.ErrStaleIndex)
	}
	return group, nil
}

func (m *Manager) mutateSettings(scope tool.Scope, path string, fn mutate.MutateFunc, create bool) error {
	kind, ok := m.layout.ValidationKind(scope, tool.KindHook)
	if !ok {
		return fmt.Errorf("%s hooks: %w", scope, scan.ErrNoStore)
	}
	_, err := m.pipeline.Mutate(path, kind, fn, store.WriteOptions{CreateIfMissing: create})
	return err
}

func (m *Manager) mutateServers(scope tool.Scope, path string, edit func(entries map[string]any) error, create bool) error {
	kind, ok := m.layout.ValidationKind(scope, tool.KindServer)
	if !ok {
		return fmt.Errorf("%s servers: %w", scope, scan.ErrNoStore)
	}
	container := config.ServersContainer(path)
	_, err := m.pipeline.Mutate(path, kind, func(doc map[string]any) (map[string]any, error) {
		entries, ok := doc[container].(map[string]any)
		if !ok {
			if _, present := doc[container]; present {
				return nil, fmt.Errorf("%s in %s is not an object", container, path)
			}
			entries = map[string]any{}
			doc[container] = entries
		}
		if err := edit(entries); err != nil {
			return nil, err
		}
		return doc, nil
	}, store.WriteOptions{CreateIfMissing: create})
	return err
}

func toggleServer(name string) func(entries map[string]any) error {
	return func(entries map[string]any) error {
		entry, ok := entries[name].(map[string]any)
		if !ok {
			return fmt.Errorf("server %q not found", name)
		}
		if disabled, _ := entry["disabled"].(bool); disabled {
			delete(entry, "disabled")
		} else {
			entry["disabled"] = true
		}
		return nil
	}
}

func containerOf(h *tool.HookSpec) overlay.Container {
	if h.Stashed {
		return overlay.Stash
	}
	return overlay.Active
}
