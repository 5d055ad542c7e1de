package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"toolshed/internal/jsonc"
)

// Format encodes and decodes a structured document.
type Format interface {
	Name() string
	Decode(data []byte) (map[string]any, error)
	Encode(doc map[string]any) ([]byte, error)
}

// LazyFormat builds its Format on first use and reuses it afterwards.
type LazyFormat struct {
	once    sync.Once
	factory func() Format
	format  Format
}

// NewLazyFormat wraps factory; factory runs at most once.
func NewLazyFormat(factory func() Format) *LazyFormat {
	return &LazyFormat{factory: factory}
}

// Get returns the format, building it if needed.
func (l *LazyFormat) Get() Format {
	l.once.Do(func() {
		l.format = l.factory()
	})
	return l.format
}

type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

func (jsonFormat) Decode(data []byte) (map[string]any, error) {
	return jsonc.ParseObject(data)
}

// Encode writes sorted keys, two-space indentation and a trailing newline.
// HTML characters are not escaped so commands like "a && b" stay readable.
func (jsonFormat) Encode(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if doc == nil {
		doc = map[string]any{}
	}
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type tomlFormat struct{}

// NewTOMLFormat returns the secondary structured format.
func NewTOMLFormat() Format {
	return tomlFormat{}
}

func (tomlFormat) Name() string { return "toml" }

func (tomlFormat) Decode(data []byte) (map[string]any, error) {
	doc := map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (tomlFormat) Encode(doc map[string]any) ([]byte, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := toml.Marshal(normalizeForTOML(doc))
	if err != nil {
		return nil, err
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// normalizeForTOML converts json.Number values, which appear when a
// document was assembled from JSON input, into native numbers.
func normalizeForTOML(v any) map[string]any {
	m, _ := normalizeValue(v).(map[string]any)
	return m
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeValue(val)
		}
		return out
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return v
	}
}

// IsSecondaryFormat reports whether path is stored in the secondary format.
func IsSecondaryFormat(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (s *FileStore) formatFor(path string) Format {
	if IsSecondaryFormat(path) {
		return s.secondary.Get()
	}
	return jsonFormat{}
}

// Encode serializes doc the way WriteStructured would for path.
func (s *FileStore) Encode(path string, doc map[string]any) ([]byte, error) {
	f := s.formatFor(path)
	data, err := f.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s as %s: %w", path, f.Name(), err)
	}
	return data, nil
}
