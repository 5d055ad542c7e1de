package scan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshed/internal/schema"
	"toolshed/internal/store"
	"toolshed/internal/tool"
)

func newNormalizer() *Normalizer {
	return NewNormalizer(store.NewFileStore(), schema.NewJSONSchemaValidator(), 8)
}

func TestSkill(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pdf", SkillFile), skillMD("pdf-tools", "Work with PDFs"))
	writeFile(t, filepath.Join(root, "old.disabled", SkillFile), skillMD("old", "Retired"))
	writeFile(t, filepath.Join(root, "broken", SkillFile), "---\nname: broken\n---\nno description\n")
	writeFile(t, filepath.Join(root, "badyaml", SkillFile), "---\nname: [unclosed\n---\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	n := newNormalizer()

	tests := []struct {
		dir        string
		wantName   string
		wantID     string
		wantStatus tool.Status
		wantDetail string
	}{
		{"pdf", "pdf-tools", "user:skill:pdf", tool.StatusEnabled, ""},
		{"old.disabled", "old", "user:skill:old", tool.StatusDisabled, ""},
		{"broken", "broken", "user:skill:broken", tool.StatusError, "invalid front matter: "},
		{"badyaml", "badyaml", "user:skill:badyaml", tool.StatusError, "invalid front matter: parse front matter"},
		{"empty", "empty", "user:skill:empty", tool.StatusWarning, "missing primary file"},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			got := n.Skill(filepath.Join(root, tt.dir), tool.ScopeUser)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, tt.wantStatus, got.Status)
			if tt.wantDetail == "" {
				assert.Empty(t, got.StatusDetail)
			} else {
				assert.Contains(t, got.StatusDetail, tt.wantDetail)
			}
			assert.True(t, got.Source.IsDirectory)
			assert.Equal(t, filepath.Join(root, tt.dir), got.Source.Directory)
		})
	}

	pdf := n.Skill(filepath.Join(root, "pdf"), tool.ScopeUser)
	assert.Equal(t, "Work with PDFs", pdf.Description)
	assert.Equal(t, "skill:pdf-tools", tool.CanonicalKey(pdf))
}

func TestMarkdown(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "review.md"), "---\ndescription: Review a diff\nargument-hint: [file]\n---\nReview $ARGUMENTS\n")
	writeFile(t, filepath.Join(root, "plain.md.disabled"), "# Plain title\n\nDo things.\n")
	writeFile(t, filepath.Join(root, "bad.md"), "---\ndescription: 12\n---\nbody\n")

	n := newNormalizer()

	review := n.Markdown(filepath.Join(root, "review.md"), tool.KindCommand, tool.ScopeProject)
	assert.Equal(t, "project:command:review", review.ID)
	assert.Equal(t, tool.StatusEnabled, review.Status, review.StatusDetail)
	assert.Equal(t, "Review a diff", review.Description)

	plain := n.Markdown(filepath.Join(root, "plain.md.disabled"), tool.KindPrompt, tool.ScopeProject)
	assert.Equal(t, "plain", plain.Name)
	assert.Equal(t, tool.KindPrompt, plain.Kind)
	assert.Equal(t, tool.StatusDisabled, plain.Status)
	assert.Equal(t, "Plain title", plain.Description)

	bad := n.Markdown(filepath.Join(root, "bad.md"), tool.KindCommand, tool.ScopeProject)
	assert.Equal(t, tool.StatusError, bad.Status)
	assert.Contains(t, bad.StatusDetail, "invalid front matter")
}

func TestMarkdownCache(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "c.md")
	writeFile(t, path, "---\ndescription: first\n---\n")

	n := newNormalizer()
	assert.Equal(t, "first", n.Markdown(path, tool.KindCommand, tool.ScopeUser).Description)
	assert.Equal(t, 1, n.cache.Len())

	// a different size invalidates the cached parse
	writeFile(t, path, "---\ndescription: second version\n---\n")
	assert.Equal(t, "second version", n.Markdown(path, tool.KindCommand, tool.ScopeUser).Description)

	require.NoError(t, os.Remove(path))
	n.Markdown(path, tool.KindCommand, tool.ScopeUser)
	assert.Equal(t, 0, n.cache.Len())
}

func TestServers(t *testing.T) {
	doc := map[string]any{
		"mcpServers": map[string]any{
			"github": map[string]any{"command": "gh-mcp", "args": []any{"--stdio"}, "env": map[string]any{"TOKEN": "x"}},
			"docs":   map[string]any{"type": "http", "url": "https://docs.example.com/mcp", "disabled": true},
			"broken": "not an object",
			"empty":  map[string]any{},
		},
		"other": json.Number("1"),
	}

	got := Servers(doc, "/p/.mcp.json", tool.ScopeProject)
	require.Len(t, got, 4)

	byName := map[string]tool.Tool{}
	for _, s := range got {
		byName[s.Name] = s
	}
	assert.Equal(t, tool.StatusEnabled, byName["github"].Status)
	assert.Equal(t, "gh-mcp --stdio", byName["github"].Description)
	assert.Equal(t, map[string]string{"TOKEN": "x"}, byName["github"].Server().Env)
	assert.Equal(t, tool.StatusDisabled, byName["docs"].Status)
	assert.Equal(t, "https://docs.example.com/mcp", byName["docs"].Server().URL)
	assert.Equal(t, tool.StatusError, byName["broken"].Status)
	assert.Equal(t, "invalid server entry", byName["broken"].StatusDetail)
	assert.Equal(t, tool.StatusWarning, byName["empty"].Status)

	// sorted by name
	assert.Equal(t, "broken", got[0].Name)
	assert.Equal(t, "mcpServers", got[0].Server().Container)
}

func TestServers_SecondaryFormat(t *testing.T) {
	doc := map[string]any{
		"mcp_servers": map[string]any{
			"fs": map[string]any{"command": "fs-server"},
		},
	}
	got := Servers(doc, "/u/config.toml", tool.ScopeUser)
	require.Len(t, got, 1)
	assert.Equal(t, "mcp_servers", got[0].Server().Container)

	assert.Empty(t, Servers(map[string]any{}, "/u/servers.json", tool.ScopeUser))
	bad := Servers(map[string]any{"mcpServers": []any{}}, "/u/servers.json", tool.ScopeUser)
	require.Len(t, bad, 1)
	assert.Equal(t, tool.StatusError, bad[0].Status)
}

func TestHooks(t *testing.T) {
	action := func(cmd string) map[string]any { return map[string]any{"type": "command", "command": cmd} }
	doc := map[string]any{
		"hooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{"matcher": "Bash", "hooks": []any{action("lint"), action("audit")}},
				map[string]any{"matcher": "Edit", "hooks": []any{action("fmt")}, "disabled": true},
			},
			"Stop": "nope",
		},
		"disabledHooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{"hooks": []any{action("notify")}},
				42,
			},
		},
	}

	got := Hooks(doc, "/u/settings.json", tool.ScopeUser)
	require.Len(t, got, 5)

	ids := make([]string, len(got))
	for i, h := range got {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{
		"user:hook:PreToolUse:active:0",
		"user:hook:PreToolUse:active:1",
		"user:hook:Stop:active:0",
		"user:hook:PreToolUse:stash:0",
		"user:hook:PreToolUse:stash:1",
	}, ids)

	assert.Equal(t, tool.StatusEnabled, got[0].Status)
	assert.Equal(t, "PreToolUse: Bash", got[0].Name)
	assert.Equal(t, "lint (+1 more)", got[0].Description)
	assert.Len(t, got[0].Hook().Actions, 2)

	assert.Equal(t, tool.StatusWarning, got[1].Status)
	assert.True(t, got[1].Hook().StaleMarker)
	assert.Contains(t, got[1].StatusDetail, "ignored by the agent")

	assert.Equal(t, tool.StatusError, got[2].Status)

	assert.Equal(t, tool.StatusDisabled, got[3].Status)
	assert.Equal(t, "PreToolUse: *", got[3].Name)
	assert.True(t, got[3].Hook().Stashed)
	assert.Equal(t, "hook:PreToolUse:", tool.CanonicalKey(got[3]))

	assert.Equal(t, tool.StatusError, got[4].Status)
}

func TestParseMarkdown(t *testing.T) {
	doc, err := ParseMarkdown("---\r\nname: x\r\ntags: [a, b]\r\n---\r\n\r\n# Heading\r\ntext\r\n")
	require.NoError(t, err)
	assert.True(t, doc.HasFrontMatter)
	assert.Equal(t, "x", doc.String("name"))
	assert.Equal(t, []any{"a", "b"}, doc.FrontMatter["tags"])
	assert.Equal(t, "Heading", doc.Title())

	doc, err = ParseMarkdown("no front matter\n---\n")
	require.NoError(t, err)
	assert.False(t, doc.HasFrontMatter)
	assert.Nil(t, doc.FrontMatter)

	doc, err = ParseMarkdown("---\n---\nbody")
	require.NoError(t, err)
	assert.True(t, doc.HasFrontMatter)
	assert.Empty(t, doc.FrontMatter)
	assert.Equal(t, "body", doc.Body)
}
