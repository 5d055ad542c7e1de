package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"toolshed/internal/schema"
	"toolshed/internal/store"
	"toolshed/internal/tool"
)

// Kind directories under a scope root.
const (
	SkillsDir   = "skills"
	CommandsDir = "commands"
	PromptsDir  = "prompts"
)

// Layout resolves (scope, kind) pairs to concrete paths. It is built once
// from a validated Config and is read-only afterwards.
type Layout struct {
	projectDir string
	precedence tool.Precedence
	scopes     map[tool.Scope]resolvedScope
	backup     BackupConfig
}

type resolvedScope struct {
	root     string
	settings string
	servers  string
	kinds    map[tool.Kind]bool
}

// NewLayout resolves every configured path against projectDir and the home
// directory.
func NewLayout(cfg Config, projectDir string) (*Layout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	precedence, err := tool.ParsePrecedence(cfg.Precedence)
	if err != nil {
		return nil, err
	}
	projectDir, err = filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	l := &Layout{
		projectDir: projectDir,
		precedence: precedence,
		scopes:     make(map[tool.Scope]resolvedScope, len(cfg.Scopes)),
		backup:     cfg.Backup,
	}
	if l.backup.Dir != "" {
		if l.backup.Dir, err = l.resolve(l.backup.Dir, projectDir); err != nil {
			return nil, err
		}
	}

	for name, sc := range cfg.Scopes {
		scope, _ := tool.ParseScope(name)
		rs := resolvedScope{kinds: map[tool.Kind]bool{}}
		if rs.root, err = l.resolve(sc.Root, projectDir); err != nil {
			return nil, err
		}
		if sc.Settings != "" {
			if rs.settings, err = l.resolve(sc.Settings, rs.root); err != nil {
				return nil, err
			}
		}
		if sc.Servers != "" {
			base := rs.root
			if strings.HasPrefix(sc.Servers, "./") || strings.HasPrefix(sc.Servers, "../") {
				base = projectDir
			}
			if rs.servers, err = l.resolve(sc.Servers, base); err != nil {
				return nil, err
			}
		}
		if len(sc.Kinds) == 0 {
			for _, k := range tool.AllKinds {
				rs.kinds[k] = true
			}
		}
		for _, k := range sc.Kinds {
			kind, _ := tool.ParseKind(k)
			rs.kinds[kind] = true
		}
		l.scopes[scope] = rs
	}
	return l, nil
}

func (l *Layout) resolve(path, base string) (string, error) {
	path, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	return filepath.Clean(path), nil
}

// ProjectDir is the absolute project directory relative roots resolve
// against.
func (l *Layout) ProjectDir() string { return l.projectDir }

// Precedence is the configured scope order.
func (l *Layout) Precedence() tool.Precedence { return l.precedence }

// Scopes returns the configured scopes in precedence order.
func (l *Layout) Scopes() []tool.Scope {
	var out []tool.Scope
	for _, s := range l.precedence {
		if _, ok := l.scopes[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Path returns the file or directory backing kind in scope. Directory- and
// file-backed kinds return the containing directory; embedded kinds return
// the shared file. ok is false when the scope has no store for the kind.
func (l *Layout) Path(scope tool.Scope, kind tool.Kind) (string, bool) {
	rs, ok := l.scopes[scope]
	if !ok || !rs.kinds[kind] {
		return "", false
	}
	switch kind {
	case tool.KindSkill:
		return filepath.Join(rs.root, SkillsDir), true
	case tool.KindCommand:
		return filepath.Join(rs.root, CommandsDir), true
	case tool.KindPrompt:
		return filepath.Join(rs.root, PromptsDir), true
	case tool.KindHook:
		return rs.settings, rs.settings != ""
	case tool.KindServer:
		return rs.servers, rs.servers != ""
	}
	return "", false
}

// ValidationKind returns the validator kind that applies to the store of
// kind in scope.
func (l *Layout) ValidationKind(scope tool.Scope, kind tool.Kind) (string, bool) {
	if _, ok := l.Path(scope, kind); !ok {
		return "", false
	}
	switch kind {
	case tool.KindSkill:
		return schema.KindSkill, true
	case tool.KindCommand, tool.KindPrompt:
		return schema.KindCommand, true
	case tool.KindHook:
		return schema.KindSettings, true
	case tool.KindServer:
		return schema.KindMCP, true
	}
	return "", false
}

// ServersContainer is the key of the server map inside a servers file.
func ServersContainer(path string) string {
	if store.IsSecondaryFormat(path) {
		return "mcp_servers"
	}
	return "mcpServers"
}

// WatchPaths lists every configured store path, sorted and de-duplicated.
func (l *Layout) WatchPaths() []string {
	seen := map[string]bool{}
	var out []string
	for _, scope := range l.Scopes() {
		for _, kind := range tool.AllKinds {
			if p, ok := l.Path(scope, kind); ok && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

// BackupDisabled reports whether snapshots are turned off.
func (l *Layout) BackupDisabled() bool { return l.backup.Disabled }

// BackupDir is the resolved snapshot root.
func (l *Layout) BackupDir() string { return l.backup.Dir }

// BackupKeep is the number of snapshots kept per path.
func (l *Layout) BackupKeep() int { return l.backup.Keep }
