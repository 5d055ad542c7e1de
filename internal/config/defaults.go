package config

import "toolshed/internal/tool"

const (
	// DefaultBackupKeep is the number of snapshots kept per path.
	DefaultBackupKeep = 10

	defaultBackupDir = "~/.config/toolshed/backups"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	precedence := make([]string, len(tool.DefaultPrecedence))
	for i, s := range tool.DefaultPrecedence {
		precedence[i] = string(s)
	}
	return Config{
		Precedence: precedence,
		Backup: BackupConfig{
			Dir:  defaultBackupDir,
			Keep: DefaultBackupKeep,
		},
		Scopes: map[string]ScopeConfig{
			string(tool.ScopeUser): {
				Root:     "~/.claude",
				Settings: "settings.json",
				Servers:  "~/.claude.json",
			},
			string(tool.ScopeProject): {
				Root:     ".claude",
				Settings: "settings.json",
				Servers:  "./.mcp.json",
			},
			string(tool.ScopeLocal): {
				Root:     ".claude",
				Settings: "settings.local.json",
				Kinds:    []string{string(tool.KindHook)},
			},
			string(tool.ScopeManaged): {
				Root:     "/etc/toolshed/managed",
				Settings: "managed-settings.json",
				Servers:  "managed-mcp.json",
				Kinds:    []string{string(tool.KindHook), string(tool.KindServer)},
			},
		},
	}
}
