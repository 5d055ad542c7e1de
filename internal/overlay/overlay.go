// Package overlay implements the disabled-hooks overlay. The agent has no
// per-group switch for hooks, so a disabled matcher group is moved out of
// the active "hooks" map into a parallel "disabledHooks" stash the agent
// never reads, and moved back to enable it.
//
// Every function takes a settings document and returns an updated copy; the
// input is never modified. They are shaped to be used as mutate.MutateFunc
// bodies.
package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// ActiveKey is the container the agent reads.
	ActiveKey = "hooks"
	// StashKey is the container holding disabled groups.
	StashKey = "disabledHooks"

	staleMarker = "disabled"

	// PositionKey is set on stashed groups to the index they held in the
	// active list, so enabling puts them back where they were.
	PositionKey = "activeIndex"
)

var (
	// ErrIndexOutOfRange is returned when no group exists at the index.
	ErrIndexOutOfRange = errors.New("hook group index out of range")
	// ErrStaleIndex is returned when the group at the index is not the one
	// the caller expected, usually because the file changed since it was
	// listed.
	ErrStaleIndex = errors.New("hook group at index does not match; file changed since it was read")
)

// Container names one of the two hook maps.
type Container string

const (
	Active Container = "active"
	Stash  Container = "stash"
)

// Key returns the document key of the container.
func (c Container) Key() string {
	if c == Stash {
		return StashKey
	}
	return ActiveKey
}

// Disable moves the group at hooks[event][index] to the end of
// disabledHooks[event], dropping any stale disabled marker on the way.
func Disable(doc map[string]any, event string, index int, expectMatcher *string) (map[string]any, error) {
	out := cloneMap(doc)
	group, err := take(out, Active, event, index, expectMatcher)
	if err != nil {
		return nil, err
	}
	delete(group, staleMarker)
	group[PositionKey] = index
	if err := put(out, Stash, event, group, -1); err != nil {
		return nil, err
	}
	return out, nil
}

// Enable moves the group at disabledHooks[event][index] back into
// hooks[event] at the position it was disabled from, or to the end when
// that position is unknown or past the end.
func Enable(doc map[string]any, event string, index int, expectMatcher *string) (map[string]any, error) {
	out := cloneMap(doc)
	group, err := take(out, Stash, event, index, expectMatcher)
	if err != nil {
		return nil, err
	}
	delete(group, staleMarker)
	at := position(group)
	if err := put(out, Active, event, group, at); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the group at container[event][index].
func Remove(doc map[string]any, c Container, event string, index int, expectMatcher *string) (map[string]any, error) {
	out := cloneMap(doc)
	if _, err := take(out, c, event, index, expectMatcher); err != nil {
		return nil, err
	}
	return out, nil
}

// Append adds group to the end of container[event].
func Append(doc map[string]any, c Container, event string, group map[string]any) (map[string]any, error) {
	out := cloneMap(doc)
	group = cloneMap(group)
	if c == Active {
		delete(group, PositionKey)
	}
	if err := put(out, c, event, group, -1); err != nil {
		return nil, err
	}
	return out, nil
}

// Groups returns the matcher groups of container[event] in document order.
func Groups(doc map[string]any, c Container, event string) []map[string]any {
	events, _ := doc[c.Key()].(map[string]any)
	list, _ := events[event].([]any)
	var out []map[string]any
	for _, g := range list {
		if m, ok := g.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Matcher returns the matcher of a group, empty when absent.
func Matcher(group map[string]any) string {
	s, _ := group["matcher"].(string)
	return s
}

// position pops the recorded active index off a stashed group, -1 when
// there is none.
func position(group map[string]any) int {
	v, ok := group[PositionKey]
	if !ok {
		return -1
	}
	delete(group, PositionKey)
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return -1
}

// take splices a group out of doc in place, deleting the event list and
// the container when they become empty.
func take(doc map[string]any, c Container, event string, index int, expectMatcher *string) (map[string]any, error) {
	key := c.Key()
	events, ok := doc[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s[%s][%d]: %w", key, event, index, ErrIndexOutOfRange)
	}
	list, ok := events[event].([]any)
	if !ok || index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%s[%s][%d]: %w", key, event, index, ErrIndexOutOfRange)
	}
	group, ok := list[index].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s[%s][%d]: group is not an object", key, event, index)
	}
	if expectMatcher != nil && Matcher(group) != *expectMatcher {
		return nil, fmt.Errorf("%s[%s][%d] has matcher %q, expected %q: %w",
			key, event, index, Matcher(group), *expectMatcher, ErrStaleIndex)
	}

	rest := make([]any, 0, len(list)-1)
	rest = append(rest, list[:index]...)
	rest = append(rest, list[index+1:]...)
	if len(rest) == 0 {
		delete(events, event)
	} else {
		events[event] = rest
	}
	if len(events) == 0 {
		delete(doc, key)
	}
	return group, nil
}

// put inserts group into container[event] at index, appending when index
// is negative or past the end.
func put(doc map[string]any, c Container, event string, group map[string]any, index int) error {
	key := c.Key()
	var events map[string]any
	switch v := doc[key].(type) {
	case nil:
		events = map[string]any{}
		doc[key] = events
	case map[string]any:
		events = v
	default:
		return fmt.Errorf("%s is not an object", key)
	}
	var list []any
	switch v := events[event].(type) {
	case nil:
	case []any:
		list = v
	default:
		return fmt.Errorf("%s[%s] is not a list", key, event)
	}
	if index < 0 || index >= len(list) {
		events[event] = append(list, group)
		return nil
	}
	next := make([]any, 0, len(list)+1)
	next = append(next, list[:index]...)
	next = append(next, group)
	events[event] = append(next, list[index:]...)
	return nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
