package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/schema"
	"toolshed/internal/tool"
)

func testLayout(t *testing.T) (*Layout, string, string) {
	t.Helper()
	home := t.TempDir()
	project := t.TempDir()

	original := osUserHomeDir
	t.Cleanup(func() { osUserHomeDir = original })
	osUserHomeDir = func() (string, error) { return home, nil }

	layout, err := NewLayout(DefaultConfig(), project)
	require.NoError(t, err)
	return layout, home, project
}

func TestLayout_Path(t *testing.T) {
	layout, home, project := testLayout(t)

	tests := []struct {
		scope  tool.Scope
		kind   tool.Kind
		want   string
		wantOK bool
	}{
		{tool.ScopeUser, tool.KindSkill, filepath.Join(home, ".claude", "skills"), true},
		{tool.ScopeUser, tool.KindHook, filepath.Join(home, ".claude", "settings.json"), true},
		{tool.ScopeUser, tool.KindServer, filepath.Join(home, ".claude.json"), true},
		{tool.ScopeProject, tool.KindCommand, filepath.Join(project, ".claude", "commands"), true},
		{tool.ScopeProject, tool.KindPrompt, filepath.Join(project, ".claude", "prompts"), true},
		{tool.ScopeProject, tool.KindServer, filepath.Join(project, ".mcp.json"), true},
		{tool.ScopeLocal, tool.KindHook, filepath.Join(project, ".claude", "settings.local.json"), true},
		{tool.ScopeLocal, tool.KindSkill, "", false},
		{tool.ScopeLocal, tool.KindServer, "", false},
		{tool.ScopeManaged, tool.KindServer, "/etc/toolshed/managed/managed-mcp.json", true},
		{tool.ScopeManaged, tool.KindSkill, "", false},
	}
	for _, tt := range tests {
		got, ok := layout.Path(tt.scope, tt.kind)
		assert.Equal(t, tt.wantOK, ok, "%s/%s", tt.scope, tt.kind)
		assert.Equal(t, tt.want, got, "%s/%s", tt.scope, tt.kind)
	}
}

func TestLayout_ValidationKind(t *testing.T) {
	layout, _, _ := testLayout(t)

	k, ok := layout.ValidationKind(tool.ScopeUser, tool.KindHook)
	assert.True(t, ok)
	assert.Equal(t, schema.KindSettings, k)

	k, ok = layout.ValidationKind(tool.ScopeProject, tool.KindPrompt)
	assert.True(t, ok)
	assert.Equal(t, schema.KindCommand, k)

	_, ok = layout.ValidationKind(tool.ScopeLocal, tool.KindSkill)
	assert.False(t, ok)
}

func TestLayout_ScopesAndBackup(t *testing.T) {
	layout, home, _ := testLayout(t)

	assert.Equal(t, []tool.Scope{tool.ScopeLocal, tool.ScopeProject, tool.ScopeUser, tool.ScopeManaged}, layout.Scopes())
	assert.Equal(t, filepath.Join(home, ".config", "toolshed", "backups"), layout.BackupDir())
	assert.Equal(t, DefaultBackupKeep, layout.BackupKeep())
	assert.False(t, layout.BackupDisabled())
	assert.Contains(t, layout.WatchPaths(), filepath.Join(home, ".claude", "skills"))
}

func TestLayout_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Precedence = []string{"user"}
	_, err := NewLayout(cfg, t.TempDir())
	assert.Error(t, err)
}

func TestServersContainer(t *testing.T) {
	assert.Equal(t, "mcpServers", ServersContainer("/x/.mcp.json"))
	assert.Equal(t, "mcp_servers", ServersContainer("/x/config.toml"))
}
