package scan

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/tool"
)

func TestInventory_LoadResolvesAcrossScopes(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.projectRoot, "skills", "foo", SkillFile), skillMD("foo", "project copy"))
	writeFile(t, filepath.Join(env.userRoot, "skills", "foo", SkillFile), skillMD("foo", "user copy"))
	writeFile(t, filepath.Join(env.userRoot, "skills", "bar", SkillFile), skillMD("bar", "only user"))

	snap, err := env.inventory.Load(context.Background(), tool.KindSkill)
	require.NoError(t, err)
	assert.False(t, snap.Errors.HasErrors())
	require.Len(t, snap.Tools, 3)

	var effective []tool.Tool
	for _, tl := range snap.Tools {
		if tl.Effective && tool.CanonicalKey(tl) == "skill:foo" {
			effective = append(effective, tl)
		}
	}
	require.Len(t, effective, 1)
	assert.Equal(t, tool.ScopeProject, effective[0].Scope)
	assert.Equal(t, "project copy", effective[0].Description)
	assert.Len(t, effective[0].ScopeEntries, 2)
}

func TestInventory_UnreadableStoreIsReported(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.userRoot, "settings.json"), `{"hooks": {"Stop": [`)
	writeFile(t, filepath.Join(env.projectRoot, "settings.json"), `{
		// project hooks
		"hooks": {"Stop": [{"hooks": [{"type": "command", "command": "notify"}]},]},
	}`)
	writeFile(t, filepath.Join(env.projectDir, ".mcp.json"), `{"mcpServers": {"gh": {"command": "gh-mcp"}}}`)

	snap, err := env.inventory.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, snap.Errors.Count())
	e := snap.Errors.Errors[0]
	assert.Equal(t, "user", e.Scope)
	assert.Equal(t, "hook", e.Kind)
	assert.Equal(t, "parse", e.ErrorType)

	var kinds []tool.Kind
	for _, tl := range snap.Tools {
		kinds = append(kinds, tl.Kind)
	}
	assert.ElementsMatch(t, []tool.Kind{tool.KindServer, tool.KindHook}, kinds)
}

func TestInventory_ToolsAt(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.userRoot, "commands", "a.md"), "# A\n")
	writeFile(t, filepath.Join(env.userRoot, "commands", "b.md.disabled"), "# B\n")
	writeFile(t, filepath.Join(env.userRoot, "commands", "notes.txt"), "ignored")

	cmds, err := env.inventory.ToolsAt(tool.ScopeUser, tool.KindCommand)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, "a", cmds[0].Name)
	assert.Equal(t, tool.StatusDisabled, cmds[1].Status)

	// absent directory and absent file are simply empty
	prompts, err := env.inventory.ToolsAt(tool.ScopeProject, tool.KindPrompt)
	require.NoError(t, err)
	assert.Empty(t, prompts)
	hooks, err := env.inventory.ToolsAt(tool.ScopeProject, tool.KindHook)
	require.NoError(t, err)
	assert.Empty(t, hooks)

	_, err = env.inventory.ToolsAt(tool.ScopeManaged, tool.KindSkill)
	assert.True(t, errors.Is(err, ErrNoStore))
}

func TestInventory_Find(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, filepath.Join(env.projectRoot, "skills", "foo", SkillFile), skillMD("foo", "project"))
	writeFile(t, filepath.Join(env.userRoot, "skills", "foo", SkillFile), skillMD("foo", "user"))
	ctx := context.Background()

	got, ok, err := env.inventory.Find(ctx, "user:skill:foo")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tool.ScopeUser, got.Scope)
	assert.False(t, got.Effective)

	_, ok, err = env.inventory.Find(ctx, "user:skill:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = env.inventory.Find(ctx, "nonsense")
	assert.Error(t, err)

	got, ok, err = env.inventory.FindByKey(ctx, "skill:foo", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tool.ScopeProject, got.Scope)

	got, ok, err = env.inventory.FindByKey(ctx, "skill:foo", tool.ScopeUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user", got.Description)
}

func TestInventory_LoadCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.inventory.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
