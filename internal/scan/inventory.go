package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"toolshed/internal/config"
	"toolshed/internal/schema"
	"toolshed/internal/store"
	"toolshed/internal/tool"
	"toolshed/pkg/logging"
)

// ErrNoStore is returned when a scope has no store for a kind.
var ErrNoStore = errors.New("scope has no store for this kind")

// Snapshot is the result of scanning every scope.
type Snapshot struct {
	// Tools is resolved: exactly one record per canonical key is effective.
	Tools []tool.Tool
	// Errors lists stores that could not be read. Their tools are missing
	// from Tools.
	Errors *config.ConfigurationErrorCollection
}

// Inventory reads tools from every configured scope.
type Inventory struct {
	files  *store.FileStore
	layout *config.Layout
	norm   *Normalizer
}

// NewInventory returns an Inventory over layout.
func NewInventory(files *store.FileStore, layout *config.Layout, validator schema.Validator) *Inventory {
	return &Inventory{
		files:  files,
		layout: layout,
		norm:   NewNormalizer(files, validator, DefaultCacheSize),
	}
}

// Layout returns the layout the inventory reads.
func (inv *Inventory) Layout() *config.Layout { return inv.layout }

// Load scans every scope concurrently for the given kinds (all kinds when
// none are given) and resolves the result. Unreadable stores are reported
// in Snapshot.Errors; only cancellation of ctx returns an error.
func (inv *Inventory) Load(ctx context.Context, kinds ...tool.Kind) (Snapshot, error) {
	if len(kinds) == 0 {
		kinds = tool.AllKinds
	}
	scopes := inv.layout.Scopes()

	type scopeResult struct {
		tools  []tool.Tool
		errors []config.ConfigurationError
	}
	results := make([]scopeResult, len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	for i, scope := range scopes {
		g.Go(func() error {
			for _, kind := range kinds {
				if err := gctx.Err(); err != nil {
					return err
				}
				path, ok := inv.layout.Path(scope, kind)
				if !ok {
					continue
				}
				tools, err := inv.ToolsAt(scope, kind)
				if err != nil {
					logging.Warn("Inventory", "Skipping %s %ss at %s: %v", scope, kind, path, err)
					results[i].errors = append(results[i].errors,
						config.NewConfigurationError(path, filepath.Base(path), string(scope), string(kind), errorType(err), err.Error()))
					continue
				}
				results[i].tools = append(results[i].tools, tools...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Errors: config.NewConfigurationErrorCollection()}
	var all []tool.Tool
	for _, r := range results {
		all = append(all, r.tools...)
		for _, e := range r.errors {
			snap.Errors.Add(e)
		}
	}
	snap.Tools = tool.Resolve(all, inv.layout.Precedence())
	logging.Debug("Inventory", "Loaded %d tools from %d scopes (%d unreadable stores)", len(snap.Tools), len(scopes), snap.Errors.Count())
	return snap, nil
}

// ToolsAt reads the tools of one kind in one scope, unresolved. It returns
// ErrNoStore when the scope has no store for the kind, and an error when
// the store itself cannot be read.
func (inv *Inventory) ToolsAt(scope tool.Scope, kind tool.Kind) ([]tool.Tool, error) {
	path, ok := inv.layout.Path(scope, kind)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", scope, kind, ErrNoStore)
	}

	switch kind {
	case tool.KindSkill:
		dirs, err := inv.files.ListSubdirectories(path)
		if err != nil {
			return nil, err
		}
		out := make([]tool.Tool, 0, len(dirs))
		for _, d := range dirs {
			out = append(out, inv.norm.Skill(filepath.Join(path, d), scope))
		}
		return out, nil

	case tool.KindCommand, tool.KindPrompt:
		names, err := inv.files.ListFiles(path, MarkdownExt, MarkdownExt+DisabledSuffix)
		if err != nil {
			return nil, err
		}
		out := make([]tool.Tool, 0, len(names))
		for _, name := range names {
			out = append(out, inv.norm.Markdown(filepath.Join(path, name), kind, scope))
		}
		return out, nil

	case tool.KindServer, tool.KindHook:
		res := inv.files.ReadStructured(path)
		if err := res.Err(); err != nil {
			return nil, err
		}
		if !res.Present {
			return nil, nil
		}
		if kind == tool.KindServer {
			return Servers(res.Data, path, scope), nil
		}
		return Hooks(res.Data, path, scope), nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

// Find looks a tool up by its scope-qualified ID. The returned tool carries
// its resolution state.
func (inv *Inventory) Find(ctx context.Context, id string) (tool.Tool, bool, error) {
	kind, err := kindFromID(id)
	if err != nil {
		return tool.Tool{}, false, err
	}
	snap, err := inv.Load(ctx, kind)
	if err != nil {
		return tool.Tool{}, false, err
	}
	for _, t := range snap.Tools {
		if t.ID == id {
			return t, true, nil
		}
	}
	return tool.Tool{}, false, nil
}

// FindByKey looks a tool up by canonical key. With scope empty the
// effective record is returned.
func (inv *Inventory) FindByKey(ctx context.Context, key string, scope tool.Scope) (tool.Tool, bool, error) {
	kind, err := tool.ParseKind(strings.SplitN(key, ":", 2)[0])
	if err != nil {
		return tool.Tool{}, false, err
	}
	snap, err := inv.Load(ctx, kind)
	if err != nil {
		return tool.Tool{}, false, err
	}
	for _, t := range snap.Tools {
		if tool.CanonicalKey(t) != key {
			continue
		}
		if (scope == "" && t.Effective) || t.Scope == scope {
			return t, true, nil
		}
	}
	return tool.Tool{}, false, nil
}

func kindFromID(id string) (tool.Kind, error) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 3 {
		return "", fmt.Errorf("malformed tool id %q", id)
	}
	if _, err := tool.ParseScope(parts[0]); err != nil {
		return "", fmt.Errorf("malformed tool id %q: %w", id, err)
	}
	return tool.ParseKind(parts[1])
}

func errorType(err error) string {
	var rf *store.ReadFailure
	if errors.As(err, &rf) {
		return config.ErrorTypeParse
	}
	return config.ErrorTypeIO
}
