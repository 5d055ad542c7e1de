package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/config"
	"toolshed/internal/jsonc"
	"toolshed/internal/mutate"
	"toolshed/internal/scan"
	"toolshed/internal/schema"
	"toolshed/internal/store"
	"toolshed/internal/tool"
)

// recordingBackup records snapshot requests and can be told to fail for
// one path.
type recordingBackup struct {
	failOn string
	paths  []string
}

func (b *recordingBackup) Snapshot(path string) error {
	if b.failOn != "" && path == b.failOn {
		return errors.New("disk full")
	}
	b.paths = append(b.paths, path)
	return nil
}

type fixture struct {
	user, project, managed string
	projectDir             string
	backup                 *recordingBackup
	inventory              *scan.Inventory
	manager                *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		user:       filepath.Join(base, "home", ".agent"),
		projectDir: filepath.Join(base, "repo"),
		project:    filepath.Join(base, "repo", ".agent"),
		managed:    filepath.Join(base, "etc", "managed"),
		backup:     &recordingBackup{},
	}
	cfg := config.Config{
		Scopes: map[string]config.ScopeConfig{
			"user":    {Root: f.user, Settings: "settings.json", Servers: "servers.json"},
			"project": {Root: f.project, Settings: "settings.json", Servers: "./.mcp.json"},
			"local":   {Root: f.project, Settings: "settings.local.json", Kinds: []string{"hook"}},
			"managed": {Root: f.managed, Settings: "managed-settings.json", Servers: "managed-mcp.json"},
		},
	}
	layout, err := config.NewLayout(cfg, f.projectDir)
	require.NoError(t, err)

	files := store.NewFileStore()
	validator := schema.NewJSONSchemaValidator()
	f.inventory = scan.NewInventory(files, layout, validator)
	f.manager = NewManager(files, mutate.New(files, validator, f.backup), f.backup, f.inventory)
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := jsonc.ParseObject(data)
	require.NoError(t, err)
	return doc
}

func (f *fixture) find(t *testing.T, id string) tool.Tool {
	t.Helper()
	got, ok, err := f.inventory.Find(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok, "tool %s not found", id)
	return got
}

func (f *fixture) exists(t *testing.T, id string) bool {
	t.Helper()
	_, ok, err := f.inventory.Find(context.Background(), id)
	require.NoError(t, err)
	return ok
}

const skillBody = "---\nname: foo\ndescription: Does foo\n---\n# Foo\n"

const hookSettings = `{
  // keep this comment-tolerant
  "hooks": {
    "PreToolUse": [
      {"matcher": "Bash", "hooks": [{"type": "command", "command": "lint"}]},
      {"matcher": "Edit", "hooks": [{"type": "command", "command": "fmt"}]}
    ]
  },
  "theme": "dark",
}`

func TestManagedScopeIsReadOnly(t *testing.T) {
	f := newFixture(t)
	settings := filepath.Join(f.managed, "managed-settings.json")
	writeFile(t, settings, hookSettings)
	before, err := os.ReadFile(settings)
	require.NoError(t, err)

	h := f.find(t, "managed:hook:PreToolUse:active:0")
	for name, res := range map[string]Result{
		"toggle": f.manager.Toggle(h),
		"remove": f.manager.Remove(h),
		"move":   f.manager.Move(h, tool.ScopeUser),
	} {
		assert.False(t, res.Success, name)
		assert.Equal(t, ErrorKindPolicy, res.Kind, name)
		assert.Contains(t, res.Error, "read-only", name)
	}

	after, err := os.ReadFile(settings)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, f.backup.paths)
	assert.NoFileExists(t, filepath.Join(f.user, "settings.json"))
}

func TestToggleSkill(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.user, "skills", "foo", scan.SkillFile), skillBody)

	res := f.manager.Toggle(f.find(t, "user:skill:foo"))
	require.True(t, res.Success, res.Error)
	assert.DirExists(t, filepath.Join(f.user, "skills", "foo.disabled"))
	assert.NoDirExists(t, filepath.Join(f.user, "skills", "foo"))

	disabled := f.find(t, "user:skill:foo")
	assert.Equal(t, tool.StatusDisabled, disabled.Status)

	res = f.manager.Toggle(disabled)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, tool.StatusEnabled, f.find(t, "user:skill:foo").Status)
}

func TestToggleCommand(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.project, "commands", "review.md"), "# Review\n")

	res := f.manager.Toggle(f.find(t, "project:command:review"))
	require.True(t, res.Success, res.Error)
	assert.FileExists(t, filepath.Join(f.project, "commands", "review.md.disabled"))
	assert.Equal(t, tool.StatusDisabled, f.find(t, "project:command:review").Status)
}

func TestToggleServer(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.projectDir, ".mcp.json")
	writeFile(t, path, `{"mcpServers": {"gh": {"command": "gh-mcp", "x-extra": 1}}}`)

	res := f.manager.Toggle(f.find(t, "project:server:gh"))
	require.True(t, res.Success, res.Error)
	entry := readDoc(t, path)["mcpServers"].(map[string]any)["gh"].(map[string]any)
	assert.Equal(t, true, entry["disabled"])
	assert.Contains(t, entry, "x-extra")
	assert.Equal(t, []string{path}, f.backup.paths)

	res = f.manager.Toggle(f.find(t, "project:server:gh"))
	require.True(t, res.Success, res.Error)
	entry = readDoc(t, path)["mcpServers"].(map[string]any)["gh"].(map[string]any)
	assert.NotContains(t, entry, "disabled")
}

func TestToggleServer_ValidationFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.projectDir, ".mcp.json")
	content := `{"mcpServers": {"gh": {"command": "gh-mcp"}, "half": {"args": ["x"]}}}`
	writeFile(t, path, content)

	res := f.manager.Toggle(f.find(t, "project:server:gh"))
	assert.False(t, res.Success)
	assert.Equal(t, ErrorKindValidation, res.Kind)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Empty(t, f.backup.paths)
}

func TestToggleHook_RoundTrip(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.user, "settings.json")
	writeFile(t, path, hookSettings)
	original := readDoc(t, path)

	res := f.manager.Toggle(f.find(t, "user:hook:PreToolUse:active:0"))
	require.True(t, res.Success, res.Error)

	doc := readDoc(t, path)
	assert.Len(t, doc["hooks"].(map[string]any)["PreToolUse"], 1)
	assert.Len(t, doc["disabledHooks"].(map[string]any)["PreToolUse"], 1)

	stashed := f.find(t, "user:hook:PreToolUse:stash:0")
	assert.Equal(t, tool.StatusDisabled, stashed.Status)
	res = f.manager.Toggle(stashed)
	require.True(t, res.Success, res.Error)

	doc = readDoc(t, path)
	assert.NotContains(t, doc, "disabledHooks")
	// re-enabled group is back at its original position
	assert.Equal(t, original, doc)
}

func TestToggleHook_StaleIndex(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.user, "settings.json")
	writeFile(t, path, hookSettings)
	h := f.find(t, "user:hook:PreToolUse:active:0")

	// someone else reorders the groups after the listing
	writeFile(t, path, `{"hooks": {"PreToolUse": [
		{"matcher": "Edit", "hooks": [{"type": "command", "command": "fmt"}]},
		{"matcher": "Bash", "hooks": [{"type": "command", "command": "lint"}]}
	]}}`)

	res := f.manager.Toggle(h)
	assert.False(t, res.Success)
	assert.Equal(t, ErrorKindConflict, res.Kind)
	assert.NotContains(t, readDoc(t, path), "disabledHooks")
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	skillDir := filepath.Join(f.user, "skills", "foo")
	writeFile(t, filepath.Join(skillDir, scan.SkillFile), skillBody)
	servers := filepath.Join(f.user, "servers.json")
	writeFile(t, servers, `{"mcpServers": {"a": {"command": "a"}, "b": {"url": "https://b"}}}`)
	settings := filepath.Join(f.user, "settings.json")
	writeFile(t, settings, hookSettings)

	require.True(t, f.manager.Remove(f.find(t, "user:skill:foo")).Success)
	assert.NoDirExists(t, skillDir)

	require.True(t, f.manager.Remove(f.find(t, "user:server:a")).Success)
	assert.Equal(t, map[string]any{"b": map[string]any{"url": "https://b"}}, readDoc(t, servers)["mcpServers"])

	require.True(t, f.manager.Remove(f.find(t, "user:hook:PreToolUse:active:1")).Success)
	groups := readDoc(t, settings)["hooks"].(map[string]any)["PreToolUse"].([]any)
	require.Len(t, groups, 1)
	assert.Equal(t, "Bash", groups[0].(map[string]any)["matcher"])

	assert.Equal(t, []string{skillDir, servers, settings}, f.backup.paths)
}

func TestRemove_BackupFailureKeepsTool(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.project, "commands", "review.md")
	writeFile(t, path, "# Review\n")
	f.backup.failOn = path

	res := f.manager.Remove(f.find(t, "project:command:review"))
	assert.False(t, res.Success)
	assert.Equal(t, ErrorKindIO, res.Kind)
	assert.Contains(t, res.Error, "backup failed")
	assert.FileExists(t, path)
}

func TestMoveSkill(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.user, "skills", "foo", scan.SkillFile), skillBody)
	writeFile(t, filepath.Join(f.user, "skills", "foo", "scripts", "run.sh"), "#!/bin/sh\n")

	res := f.manager.Move(f.find(t, "user:skill:foo"), tool.ScopeProject)
	require.True(t, res.Success, res.Error)

	assert.True(t, f.exists(t, "project:skill:foo"))
	assert.False(t, f.exists(t, "user:skill:foo"))
	assert.FileExists(t, filepath.Join(f.project, "skills", "foo", "scripts", "run.sh"))
}

func TestMoveServer(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.projectDir, ".mcp.json"), `{"mcpServers": {"gh": {"command": "gh-mcp", "args": ["--stdio"]}}}`)

	res := f.manager.Move(f.find(t, "project:server:gh"), tool.ScopeUser)
	require.True(t, res.Success, res.Error)

	assert.True(t, f.exists(t, "user:server:gh"))
	assert.False(t, f.exists(t, "project:server:gh"))
	moved := f.find(t, "user:server:gh")
	assert.Equal(t, []string{"--stdio"}, moved.Server().Args)
}

func TestMoveHook(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.project, "settings.json"), hookSettings)

	res := f.manager.Move(f.find(t, "project:hook:PreToolUse:active:1"), tool.ScopeLocal)
	require.True(t, res.Success, res.Error)

	local := f.find(t, "local:hook:PreToolUse:active:0")
	assert.Equal(t, "PreToolUse: Edit", local.Name)
	assert.False(t, f.exists(t, "project:hook:PreToolUse:active:1"))
}

func TestMove_SourceDeleteFailureLeavesBothCopies(t *testing.T) {
	f := newFixture(t)
	source := filepath.Join(f.projectDir, ".mcp.json")
	writeFile(t, source, `{"mcpServers": {"gh": {"command": "gh-mcp"}}}`)
	f.backup.failOn = source

	res := f.manager.Move(f.find(t, "project:server:gh"), tool.ScopeUser)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "both scopes")

	assert.True(t, f.exists(t, "user:server:gh"))
	assert.True(t, f.exists(t, "project:server:gh"))
}

func TestMove_Rejections(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.user, "skills", "foo", scan.SkillFile), skillBody)
	writeFile(t, filepath.Join(f.project, "skills", "foo", scan.SkillFile), skillBody)
	skill := f.find(t, "user:skill:foo")

	tests := []struct {
		name     string
		target   tool.Scope
		wantKind ErrorKind
	}{
		{"into managed", tool.ScopeManaged, ErrorKindPolicy},
		{"same scope", tool.ScopeUser, ErrorKindValidation},
		{"no store for kind", tool.ScopeLocal, ErrorKindValidation},
		{"already at target", tool.ScopeProject, ErrorKindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.manager.Move(skill, tt.target)
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantKind, res.Kind, res.Error)
			assert.True(t, f.exists(t, "user:skill:foo"))
		})
	}
}

func TestCheckConflict(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.user, "skills", "foo", scan.SkillFile), skillBody)
	writeFile(t, filepath.Join(f.project, "skills", "foo", scan.SkillFile), skillBody)
	writeFile(t, filepath.Join(f.user, "commands", "foo.md"), "# Foo\n")
	writeFile(t, filepath.Join(f.user, "settings.json"), hookSettings)
	writeFile(t, filepath.Join(f.project, "settings.json"), `{"hooks": [`)

	skill := f.find(t, "user:skill:foo")
	assert.True(t, f.manager.CheckConflict(skill, tool.ScopeProject))
	// different kind with the same name is not a conflict
	assert.False(t, f.manager.CheckConflict(f.find(t, "user:command:foo"), tool.ScopeProject))
	// no store for skills in local
	assert.False(t, f.manager.CheckConflict(skill, tool.ScopeLocal))
	// unreadable target
	assert.False(t, f.manager.CheckConflict(f.find(t, "user:hook:PreToolUse:active:0"), tool.ScopeProject))
}
