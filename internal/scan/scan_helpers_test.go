package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"toolshed/internal/config"
	"toolshed/internal/schema"
	"toolshed/internal/store"
)

// writeFile creates path with content, making parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func skillMD(name, description string) string {
	return "---\nname: " + name + "\ndescription: " + description + "\n---\n# " + name + "\n\nBody.\n"
}

// testEnv is a two-scope layout (user and project) rooted in temp dirs.
type testEnv struct {
	userRoot    string
	projectRoot string
	projectDir  string
	layout      *config.Layout
	inventory   *Inventory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	env := &testEnv{
		userRoot:    filepath.Join(base, "home", ".agent"),
		projectDir:  filepath.Join(base, "repo"),
		projectRoot: filepath.Join(base, "repo", ".agent"),
	}
	cfg := config.Config{
		Backup: config.BackupConfig{Disabled: true},
		Scopes: map[string]config.ScopeConfig{
			"user":    {Root: env.userRoot, Settings: "settings.json", Servers: "servers.json"},
			"project": {Root: env.projectRoot, Settings: "settings.json", Servers: "./.mcp.json"},
		},
	}
	layout, err := config.NewLayout(cfg, env.projectDir)
	require.NoError(t, err)
	env.layout = layout
	env.inventory = NewInventory(store.NewFileStore(), layout, schema.NewJSONSchemaValidator())
	return env
}
