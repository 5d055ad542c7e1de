package config

// Config is the top-level configuration structure for toolshed.
type Config struct {
	// Precedence orders scopes from most to least specific.
	Precedence []string               `yaml:"precedence,omitempty"`
	Backup     BackupConfig           `yaml:"backup"`
	Scopes     map[string]ScopeConfig `yaml:"scopes"`
}

// BackupConfig controls pre-write snapshots.
type BackupConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Dir      string `yaml:"dir,omitempty"`  // Snapshot root (default: ~/.config/toolshed/backups)
	Keep     int    `yaml:"keep,omitempty"` // Snapshots kept per path, 0 keeps all
}

// ScopeConfig locates the stores of one scope.
type ScopeConfig struct {
	Root     string   `yaml:"root"`
	Settings string   `yaml:"settings,omitempty"` // Hooks live here
	Servers  string   `yaml:"servers,omitempty"`  // Server registrations live here
	Kinds    []string `yaml:"kinds,omitempty"`    // Kinds stored in this scope (default: all)
}
