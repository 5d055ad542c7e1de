// Package tool defines the normalized model every toolshed operation works
// on, plus cross-scope identity and effective-entry resolution.
package tool

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type of a configuration entry.
type Kind string

const (
	KindSkill   Kind = "skill"
	KindServer  Kind = "server"
	KindHook    Kind = "hook"
	KindCommand Kind = "command"
	KindPrompt  Kind = "prompt"
)

// AllKinds lists every kind in display order.
var AllKinds = []Kind{KindSkill, KindCommand, KindPrompt, KindServer, KindHook}

// ParseKind accepts a kind name or its common plural.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	switch k {
	case KindSkill, KindServer, KindHook, KindCommand, KindPrompt:
		return k, nil
	case "mcp", "mcpserver":
		return KindServer, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// DirectoryBacked reports whether entries of this kind are directories.
func (k Kind) DirectoryBacked() bool { return k == KindSkill }

// FileBacked reports whether each entry of this kind is its own file.
func (k Kind) FileBacked() bool { return k == KindCommand || k == KindPrompt }

// Embedded reports whether entries of this kind live inside a shared
// structured file.
func (k Kind) Embedded() bool { return k == KindServer || k == KindHook }

// Scope is a precedence tier.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
	ScopeLocal   Scope = "local"
	ScopeManaged Scope = "managed"
)

// AllScopes lists every scope.
var AllScopes = []Scope{ScopeLocal, ScopeProject, ScopeUser, ScopeManaged}

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopeUser, ScopeProject, ScopeLocal, ScopeManaged:
		return sc, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// ReadOnly reports whether the scope is centrally administered.
func (s Scope) ReadOnly() bool { return s == ScopeManaged }

// Status is the health/enablement of an entry.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
	StatusWarning  Status = "warning"
	StatusError    Status = "error"
)

// Source locates the backing file of an entry.
type Source struct {
	Path        string `json:"path" yaml:"path"`
	IsDirectory bool   `json:"isDirectory,omitempty" yaml:"isDirectory,omitempty"`
	Directory   string `json:"directory,omitempty" yaml:"directory,omitempty"`
}

// ScopeEntry records one scope in which a canonical key was found.
type ScopeEntry struct {
	Scope  Scope  `json:"scope" yaml:"scope"`
	ID     string `json:"id" yaml:"id"`
	Status Status `json:"status" yaml:"status"`
}

// Tool is a normalized configuration entry. Kind-specific fields live in
// Spec, whose concrete type always matches Kind.
type Tool struct {
	ID           string
	Kind         Kind
	Name         string
	Description  string
	Scope        Scope
	Status       Status
	StatusDetail string
	Source       Source
	Effective    bool
	ScopeEntries []ScopeEntry
	Spec         Spec
}

// ReadOnly reports whether the tool may never be mutated.
func (t Tool) ReadOnly() bool { return t.Scope.ReadOnly() }

// Enabled reports whether the agent would load the tool.
func (t Tool) Enabled() bool {
	return t.Status != StatusDisabled && t.Status != StatusError
}

// Hook returns the hook spec, or nil for other kinds.
func (t Tool) Hook() *HookSpec {
	h, _ := t.Spec.(*HookSpec)
	return h
}

// Server returns the server spec, or nil for other kinds.
func (t Tool) Server() *ServerSpec {
	s, _ := t.Spec.(*ServerSpec)
	return s
}

// Spec is implemented by the per-kind payloads.
type Spec interface {
	kind() Kind
	metadata() map[string]any
}

// SkillSpec is a directory-backed skill.
type SkillSpec struct {
	FrontMatter map[string]any
	Body        string
}

func (*SkillSpec) kind() Kind { return KindSkill }

func (s *SkillSpec) metadata() map[string]any {
	return map[string]any{"frontMatter": s.FrontMatter}
}

// CommandSpec is a single-file command or custom prompt.
type CommandSpec struct {
	Prompt      bool
	FrontMatter map[string]any
	Body        string
}

func (c *CommandSpec) kind() Kind {
	if c.Prompt {
		return KindPrompt
	}
	return KindCommand
}

func (c *CommandSpec) metadata() map[string]any {
	return map[string]any{"frontMatter": c.FrontMatter}
}

// ServerSpec is an external-process server registration.
type ServerSpec struct {
	Type    string
	Command string
	Args    []string
	URL     string
	Env     map[string]string
	// Container is the key of the map holding the entry in its file.
	Container string
	// Raw is the entry exactly as stored, unknown fields included.
	Raw map[string]any
}

func (*ServerSpec) kind() Kind { return KindServer }

func (s *ServerSpec) metadata() map[string]any {
	m := map[string]any{"container": s.Container}
	if s.Type != "" {
		m["type"] = s.Type
	}
	if s.Command != "" {
		m["command"] = s.Command
	}
	if len(s.Args) > 0 {
		m["args"] = s.Args
	}
	if s.URL != "" {
		m["url"] = s.URL
	}
	return m
}

// HookAction is one action of a matcher group.
type HookAction struct {
	Type    string
	Command string
	Timeout int
}

// HookSpec is one matcher group of a hook event.
type HookSpec struct {
	Event   string
	Matcher string
	// Index is the group's position in its container list when read.
	Index int
	// Stashed is true when the group lives in the disabled stash.
	Stashed bool
	// StaleMarker is true when the group carries a disabled flag the agent
	// ignores.
	StaleMarker bool
	Actions     []HookAction
	// Raw is the group exactly as stored.
	Raw map[string]any
}

func (*HookSpec) kind() Kind { return KindHook }

func (h *HookSpec) metadata() map[string]any {
	return map[string]any{
		"eventName": h.Event,
		"matcher":   h.Matcher,
		"index":     h.Index,
		"container": h.ContainerName(),
		"actions":   len(h.Actions),
	}
}

// ContainerName is "active" or "stash".
func (h *HookSpec) ContainerName() string {
	if h.Stashed {
		return "stash"
	}
	return "active"
}

// HookDisplayName is the display name of a matcher group.
func HookDisplayName(event, matcher string) string {
	if matcher == "" {
		matcher = "*"
	}
	return event + ": " + matcher
}

// MakeID builds the scope-qualified identifier of a named entry.
func MakeID(scope Scope, kind Kind, name string) string {
	return string(scope) + ":" + string(kind) + ":" + name
}

// MakeHookID builds the scope-qualified identifier of a matcher group.
func MakeHookID(scope Scope, event string, stashed bool, index int) string {
	h := HookSpec{Stashed: stashed}
	return string(scope) + ":hook:" + event + ":" + h.ContainerName() + ":" + strconv.Itoa(index)
}
