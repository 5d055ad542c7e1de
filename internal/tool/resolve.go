package tool

import (
	"fmt"
	"sort"
	"strings"
)

// CanonicalKey is the cross-scope identity of a tool: kind and name, or for
// hooks kind, event and matcher. Two records with the same key in different
// scopes are the same logical tool.
func CanonicalKey(t Tool) string {
	if h := t.Hook(); h != nil {
		return string(KindHook) + ":" + h.Event + ":" + h.Matcher
	}
	return string(t.Kind) + ":" + t.Name
}

// Precedence orders scopes from most to least specific.
type Precedence []Scope

// DefaultPrecedence is Local > Project > User > Managed.
var DefaultPrecedence = Precedence{ScopeLocal, ScopeProject, ScopeUser, ScopeManaged}

// ParsePrecedence validates a configured order. Every scope must appear
// exactly once.
func ParsePrecedence(names []string) (Precedence, error) {
	if len(names) == 0 {
		return DefaultPrecedence, nil
	}
	seen := map[Scope]bool{}
	p := make(Precedence, 0, len(names))
	for _, name := range names {
		s, err := ParseScope(name)
		if err != nil {
			return nil, err
		}
		if seen[s] {
			return nil, fmt.Errorf("scope %q listed twice in precedence", s)
		}
		seen[s] = true
		p = append(p, s)
	}
	var missing []string
	for _, s := range AllScopes {
		if !seen[s] {
			missing = append(missing, string(s))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("precedence is missing scopes: %s", strings.Join(missing, ", "))
	}
	return p, nil
}

// Rank returns the position of s; lower wins.
func (p Precedence) Rank(s Scope) int {
	for i, candidate := range p {
		if candidate == s {
			return i
		}
	}
	return len(p)
}

// Resolve marks exactly one effective record per canonical key (the one in
// the highest-precedence scope) and records on it every scope in which the
// key appears. Within one scope an enabled record beats a disabled one.
// The input is not modified.
func Resolve(tools []Tool, p Precedence) []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ka, kb := CanonicalKey(a), CanonicalKey(b); ka != kb {
			return ka < kb
		}
		if ra, rb := p.Rank(a.Scope), p.Rank(b.Scope); ra != rb {
			return ra < rb
		}
		if ea, eb := a.Enabled(), b.Enabled(); ea != eb {
			return ea
		}
		return a.ID < b.ID
	})

	for start := 0; start < len(out); {
		key := CanonicalKey(out[start])
		end := start
		for end < len(out) && CanonicalKey(out[end]) == key {
			out[end].Effective = false
			out[end].ScopeEntries = nil
			end++
		}

		entries := make([]ScopeEntry, 0, end-start)
		for i := start; i < end; i++ {
			entries = append(entries, ScopeEntry{Scope: out[i].Scope, ID: out[i].ID, Status: out[i].Status})
		}
		out[start].Effective = true
		out[start].ScopeEntries = entries
		start = end
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return p.Rank(a.Scope) < p.Rank(b.Scope)
	})
	return out
}

func kindOrder(k Kind) int {
	for i, candidate := range AllKinds {
		if candidate == k {
			return i
		}
	}
	return len(AllKinds)
}
