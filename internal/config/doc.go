// Package config loads toolshed's own configuration and answers the scope
// layout questions the rest of the tool asks: which file or directory backs
// a (scope, kind) pair, which validation kind applies to it, and in which
// order scopes take precedence.
//
// # Configuration File
//
// The default location is ~/.config/toolshed/config.yaml; commands accept
// --config to point elsewhere. A missing file means defaults.
//
//	precedence: [local, project, user, managed]
//	backup:
//	  disabled: false
//	  dir: ~/.config/toolshed/backups
//	  keep: 10
//	scopes:
//	  user:
//	    root: ~/.claude
//	    settings: settings.json
//	    servers: ~/.claude.json
//	  project:
//	    root: .claude
//	    settings: settings.json
//	    servers: .mcp.json
//	  local:
//	    root: .claude
//	    settings: settings.local.json
//	    kinds: [hook]
//	  managed:
//	    root: /etc/toolshed/managed
//	    settings: managed-settings.json
//	    servers: managed-mcp.json
//	    kinds: [hook, server]
//
// A scope entry in the file replaces the default entry for that scope as a
// whole. Relative roots resolve against the project directory; relative
// settings and servers paths resolve against the scope root, except that a
// servers path starting with "./" or "../" resolves against the project
// directory. A leading "~" expands to the home directory.
//
// Kind directories under a scope root are fixed: skills/, commands/ and
// prompts/. Hooks live in the settings file, servers in the servers file.
// A servers file ending in .toml is read in the secondary format.
//
// # Usage
//
//	cfg, err := config.LoadConfig(config.DefaultConfigPath())
//	if err != nil {
//	    return err
//	}
//	layout, err := config.NewLayout(cfg, projectDir)
//	path, ok := layout.Path(tool.ScopeUser, tool.KindSkill)
package config
