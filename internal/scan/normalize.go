package scan

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"toolshed/internal/config"
	"toolshed/internal/overlay"
	"toolshed/internal/schema"
	"toolshed/internal/store"
	"toolshed/internal/tool"
)

const (
	// DisabledSuffix marks a renamed-away skill directory or markdown file.
	DisabledSuffix = ".disabled"
	// SkillFile is the primary file of a skill directory.
	SkillFile = "SKILL.md"
	// MarkdownExt is the extension of command and prompt files.
	MarkdownExt = ".md"

	detailMissingPrimary = "missing primary file"
	detailStaleMarker    = "disabled flag is ignored by the agent; toggle to move it to the stash"
)

// Normalizer turns on-disk shapes into tool.Tool values. It never returns
// errors: problems with an individual entry become a Warning or Error
// status with a detail.
type Normalizer struct {
	validator schema.Validator
	cache     *markdownCache
}

// NewNormalizer returns a Normalizer reading markdown through files.
func NewNormalizer(files *store.FileStore, validator schema.Validator, cacheSize int) *Normalizer {
	return &Normalizer{
		validator: validator,
		cache:     newMarkdownCache(files, cacheSize),
	}
}

// IsDisabledName reports whether a skill directory or markdown file name
// carries the disabled suffix.
func IsDisabledName(name string) bool {
	return strings.HasSuffix(name, DisabledSuffix)
}

// Skill normalizes a skill directory.
func (n *Normalizer) Skill(dir string, scope tool.Scope) tool.Tool {
	base := filepath.Base(dir)
	dirName := strings.TrimSuffix(base, DisabledSuffix)
	primary := filepath.Join(dir, SkillFile)

	t := tool.Tool{
		ID:     tool.MakeID(scope, tool.KindSkill, dirName),
		Kind:   tool.KindSkill,
		Name:   dirName,
		Scope:  scope,
		Status: tool.StatusEnabled,
		Source: tool.Source{Path: primary, IsDirectory: true, Directory: dir},
	}
	spec := &tool.SkillSpec{}
	t.Spec = spec
	if IsDisabledName(base) {
		t.Status = tool.StatusDisabled
	}

	res := n.cache.load(primary)
	switch {
	case res.failure != "":
		return withProblem(t, tool.StatusError, res.failure)
	case !res.present:
		return withProblem(t, tool.StatusWarning, detailMissingPrimary)
	case res.parseErr != nil:
		return withProblem(t, tool.StatusError, "invalid front matter: "+res.parseErr.Error())
	}

	spec.FrontMatter = res.doc.FrontMatter
	spec.Body = res.doc.Body
	if name := res.doc.String("name"); name != "" {
		t.Name = name
	}
	t.Description = res.doc.String("description")

	if issues := n.validateFrontMatter(schema.KindSkill, res.doc); issues != "" {
		return withProblem(t, tool.StatusError, "invalid front matter: "+issues)
	}
	return t
}

// Markdown normalizes a command or prompt file.
func (n *Normalizer) Markdown(path string, kind tool.Kind, scope tool.Scope) tool.Tool {
	base := filepath.Base(path)
	name := strings.TrimSuffix(strings.TrimSuffix(base, DisabledSuffix), MarkdownExt)

	spec := &tool.CommandSpec{Prompt: kind == tool.KindPrompt}
	t := tool.Tool{
		ID:     tool.MakeID(scope, kind, name),
		Kind:   kind,
		Name:   name,
		Scope:  scope,
		Status: tool.StatusEnabled,
		Source: tool.Source{Path: path},
		Spec:   spec,
	}
	if IsDisabledName(base) {
		t.Status = tool.StatusDisabled
	}

	res := n.cache.load(path)
	switch {
	case res.failure != "":
		return withProblem(t, tool.StatusError, res.failure)
	case !res.present:
		return withProblem(t, tool.StatusError, "file disappeared while scanning")
	case res.parseErr != nil:
		return withProblem(t, tool.StatusError, "invalid front matter: "+res.parseErr.Error())
	}

	spec.FrontMatter = res.doc.FrontMatter
	spec.Body = res.doc.Body
	t.Description = res.doc.String("description")
	if t.Description == "" {
		t.Description = res.doc.Title()
	}

	if res.doc.HasFrontMatter {
		if issues := n.validateFrontMatter(schema.KindCommand, res.doc); issues != "" {
			return withProblem(t, tool.StatusError, "invalid front matter: "+issues)
		}
	}
	return t
}

func (n *Normalizer) validateFrontMatter(kind string, doc Document) string {
	if n.validator == nil {
		return ""
	}
	data, err := schema.FromYAML([]byte(doc.RawFrontMatter))
	if err != nil {
		return err.Error()
	}
	if res := n.validator.Validate(kind, data); !res.OK {
		return res.Error()
	}
	return ""
}

func withProblem(t tool.Tool, status tool.Status, detail string) tool.Tool {
	t.Status = status
	t.StatusDetail = detail
	return t
}

// Servers normalizes the server registrations of a servers file. The map
// key is mcpServers, or mcp_servers for the secondary format.
func Servers(doc map[string]any, path string, scope tool.Scope) []tool.Tool {
	container := config.ServersContainer(path)
	entries, ok := doc[container].(map[string]any)
	if !ok {
		if _, present := doc[container]; present {
			return []tool.Tool{{
				ID:           tool.MakeID(scope, tool.KindServer, container),
				Kind:         tool.KindServer,
				Name:         container,
				Scope:        scope,
				Status:       tool.StatusError,
				StatusDetail: container + " is not an object",
				Source:       tool.Source{Path: path},
				Spec:         &tool.ServerSpec{Container: container},
			}}
		}
		return nil
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]tool.Tool, 0, len(names))
	for _, name := range names {
		spec := &tool.ServerSpec{Container: container}
		t := tool.Tool{
			ID:     tool.MakeID(scope, tool.KindServer, name),
			Kind:   tool.KindServer,
			Name:   name,
			Scope:  scope,
			Status: tool.StatusEnabled,
			Source: tool.Source{Path: path},
			Spec:   spec,
		}

		raw, ok := entries[name].(map[string]any)
		if !ok {
			out = append(out, withProblem(t, tool.StatusError, "invalid server entry"))
			continue
		}
		spec.Raw = raw
		spec.Type, _ = raw["type"].(string)
		spec.Command, _ = raw["command"].(string)
		spec.URL, _ = raw["url"].(string)
		spec.Args = stringList(raw["args"])
		spec.Env = stringMap(raw["env"])

		if d, _ := raw["disabled"].(bool); d {
			t.Status = tool.StatusDisabled
		}
		switch {
		case spec.Command != "":
			t.Description = strings.TrimSpace(spec.Command + " " + strings.Join(spec.Args, " "))
		case spec.URL != "":
			t.Description = spec.URL
		default:
			t = withProblem(t, tool.StatusWarning, "neither command nor url is set")
		}
		out = append(out, t)
	}
	return out
}

// Hooks normalizes every matcher group of a settings file, active groups
// first, each container in event-name order.
func Hooks(doc map[string]any, path string, scope tool.Scope) []tool.Tool {
	var out []tool.Tool
	for _, c := range []overlay.Container{overlay.Active, overlay.Stash} {
		out = append(out, hooksIn(doc, c, path, scope)...)
	}
	return out
}

func hooksIn(doc map[string]any, c overlay.Container, path string, scope tool.Scope) []tool.Tool {
	stashed := c == overlay.Stash
	raw, present := doc[c.Key()]
	if !present {
		return nil
	}
	events, ok := raw.(map[string]any)
	if !ok {
		return []tool.Tool{hookProblem(scope, path, c.Key(), "", stashed, 0, c.Key()+" is not an object")}
	}

	names := make([]string, 0, len(events))
	for name := range events {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []tool.Tool
	for _, event := range names {
		list, ok := events[event].([]any)
		if !ok {
			out = append(out, hookProblem(scope, path, event, "", stashed, 0, "event entry is not a list"))
			continue
		}
		for i, g := range list {
			group, ok := g.(map[string]any)
			if !ok {
				out = append(out, hookProblem(scope, path, event, "", stashed, i, "matcher group is not an object"))
				continue
			}
			out = append(out, hookTool(scope, path, event, group, stashed, i))
		}
	}
	return out
}

func hookTool(scope tool.Scope, path, event string, group map[string]any, stashed bool, index int) tool.Tool {
	matcher := overlay.Matcher(group)
	spec := &tool.HookSpec{
		Event:   event,
		Matcher: matcher,
		Index:   index,
		Stashed: stashed,
		Raw:     group,
	}
	t := tool.Tool{
		ID:     tool.MakeHookID(scope, event, stashed, index),
		Kind:   tool.KindHook,
		Name:   tool.HookDisplayName(event, matcher),
		Scope:  scope,
		Status: tool.StatusEnabled,
		Source: tool.Source{Path: path},
		Spec:   spec,
	}

	actions, ok := group["hooks"].([]any)
	if !ok {
		return withProblem(t, tool.StatusError, "matcher group has no hooks list")
	}
	for _, a := range actions {
		m, ok := a.(map[string]any)
		if !ok {
			return withProblem(t, tool.StatusError, "hook action is not an object")
		}
		action := tool.HookAction{}
		action.Type, _ = m["type"].(string)
		action.Command, _ = m["command"].(string)
		if action.Command == "" {
			action.Command, _ = m["prompt"].(string)
		}
		action.Timeout = intValue(m["timeout"])
		spec.Actions = append(spec.Actions, action)
	}
	t.Description = describeActions(spec.Actions)

	if stashed {
		t.Status = tool.StatusDisabled
		return t
	}
	if _, marked := group["disabled"]; marked {
		spec.StaleMarker = true
		return withProblem(t, tool.StatusWarning, detailStaleMarker)
	}
	return t
}

func hookProblem(scope tool.Scope, path, event, matcher string, stashed bool, index int, detail string) tool.Tool {
	return tool.Tool{
		ID:           tool.MakeHookID(scope, event, stashed, index),
		Kind:         tool.KindHook,
		Name:         tool.HookDisplayName(event, matcher),
		Scope:        scope,
		Status:       tool.StatusError,
		StatusDetail: detail,
		Source:       tool.Source{Path: path},
		Spec:         &tool.HookSpec{Event: event, Matcher: matcher, Index: index, Stashed: stashed},
	}
}

func describeActions(actions []tool.HookAction) string {
	if len(actions) == 0 {
		return ""
	}
	desc := actions[0].Command
	if len(actions) > 1 {
		desc += fmt.Sprintf(" (+%d more)", len(actions)-1)
	}
	return desc
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, fmt.Sprint(e))
	}
	return out
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, e := range m {
		out[k] = fmt.Sprint(e)
	}
	return out
}

func intValue(v any) int {
	switch n := v.(type) {
	case json.Number:
		i, _ := strconv.Atoi(n.String())
		return i
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
