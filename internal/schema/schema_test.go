package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSchemaValidator_Kinds(t *testing.T) {
	v := NewJSONSchemaValidator()
	assert.Equal(t, []string{KindCommand, KindMCP, KindSettings, KindSkill}, v.Kinds())
}

func TestValidate_SettingsPassthrough(t *testing.T) {
	v := NewJSONSchemaValidator()
	doc := map[string]any{
		"theme": "dark",
		"hooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{
					"matcher": "Bash",
					"hooks": []any{
						map[string]any{"type": "command", "command": "./check.sh", "timeout": json.Number("30"), "x-owner": "ops"},
					},
				},
			},
		},
	}

	res := v.Validate(KindSettings, doc)
	require.True(t, res.OK, res.Error())
	assert.Equal(t, doc, res.Data, "unknown fields must pass through untouched")
}

func TestValidate_ReportsEveryIssue(t *testing.T) {
	v := NewJSONSchemaValidator()
	doc := map[string]any{
		"hooks": map[string]any{
			"PreToolUse": []any{
				map[string]any{"matcher": json.Number("3"), "hooks": []any{}},
			},
			"Stop": []any{},
		},
	}

	res := v.Validate(KindSettings, doc)
	require.False(t, res.OK)
	require.Len(t, res.Issues, 2)
	assert.Equal(t, "/hooks/PreToolUse/0/matcher", res.Issues[0].Path)
	assert.Equal(t, "/hooks/Stop", res.Issues[1].Path)
	assert.Contains(t, res.Error(), "; ")
}

func TestValidate_MCP(t *testing.T) {
	v := NewJSONSchemaValidator()

	tests := []struct {
		name string
		doc  map[string]any
		ok   bool
	}{
		{
			name: "command server",
			doc:  map[string]any{"mcpServers": map[string]any{"fs": map[string]any{"command": "npx", "args": []any{"fs"}}}},
			ok:   true,
		},
		{
			name: "url server in toml container",
			doc:  map[string]any{"mcp_servers": map[string]any{"docs": map[string]any{"url": "https://example.com/mcp"}}},
			ok:   true,
		},
		{
			name: "neither command nor url",
			doc:  map[string]any{"mcpServers": map[string]any{"bad": map[string]any{"args": []any{}}}},
		},
		{
			name: "disabled must be boolean",
			doc:  map[string]any{"mcpServers": map[string]any{"bad": map[string]any{"command": "x", "disabled": "yes"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(KindMCP, tt.doc)
			assert.Equal(t, tt.ok, res.OK, res.Error())
		})
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	res := NewJSONSchemaValidator().Validate("nope", map[string]any{})
	require.False(t, res.OK)
	assert.Contains(t, res.Error(), `unknown validation kind "nope"`)
}

func TestFromYAML(t *testing.T) {
	v := NewJSONSchemaValidator()

	data, err := FromYAML([]byte("name: review\ndescription: Reviews code\nextra: [1, 2]\n"))
	require.NoError(t, err)
	res := v.Validate(KindSkill, data)
	assert.True(t, res.OK, res.Error())

	data, err = FromYAML([]byte("name: has spaces\n"))
	require.NoError(t, err)
	res = v.Validate(KindSkill, data)
	require.False(t, res.OK)
	assert.Len(t, res.Issues, 2, "bad name pattern and missing description: %s", res.Error())

	data, err = FromYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, data)

	_, err = FromYAML([]byte("a: [unclosed"))
	assert.Error(t, err)
}
