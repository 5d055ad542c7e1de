// Package schema validates candidate configuration documents before they
// are written. Validation is structural passthrough: fields the schemas do
// not describe are accepted and returned unchanged, so writes never strip
// settings that belong to other tools sharing the same file.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"sigs.k8s.io/yaml"
)

// Validation kinds understood by the default validator.
const (
	KindSettings = "settings"
	KindMCP      = "mcp"
	KindSkill    = "skill"
	KindCommand  = "command"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://schemas.toolshed.dev/"

// Issue is one validation problem.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" || i.Path == "/" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Result is the outcome of a validation. On success Data is the input,
// untouched.
type Result struct {
	OK     bool
	Data   any
	Issues []Issue
}

// Error joins every issue; it never truncates to the first one.
func (r Result) Error() string {
	msgs := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		msgs = append(msgs, issue.String())
	}
	return strings.Join(msgs, "; ")
}

// Validator checks data against the schema registered for kind.
type Validator interface {
	Validate(kind string, data any) Result
}

// JSONSchemaValidator validates against the embedded JSON Schemas.
type JSONSchemaValidator struct {
	once    sync.Once
	schemas map[string]*jsonschema.Schema
	initErr error
	printer *message.Printer
}

// NewJSONSchemaValidator returns a validator; schemas compile on first use.
func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{printer: message.NewPrinter(language.English)}
}

// Kinds lists the registered validation kinds.
func (v *JSONSchemaValidator) Kinds() []string {
	v.compile()
	kinds := make([]string, 0, len(v.schemas))
	for k := range v.schemas {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (v *JSONSchemaValidator) compile() {
	v.once.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			v.initErr = err
			return
		}

		c := jsonschema.NewCompiler()
		urls := map[string]string{}
		for _, e := range entries {
			data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
			if err != nil {
				v.initErr = err
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				v.initErr = fmt.Errorf("schema %s: %w", e.Name(), err)
				return
			}
			url := schemaBaseURL + e.Name()
			if err := c.AddResource(url, doc); err != nil {
				v.initErr = fmt.Errorf("schema %s: %w", e.Name(), err)
				return
			}
			urls[strings.TrimSuffix(e.Name(), ".json")] = url
		}

		v.schemas = make(map[string]*jsonschema.Schema, len(urls))
		for kind, url := range urls {
			sch, err := c.Compile(url)
			if err != nil {
				v.initErr = fmt.Errorf("compile schema %s: %w", kind, err)
				return
			}
			v.schemas[kind] = sch
		}
	})
}

// Validate implements Validator.
func (v *JSONSchemaValidator) Validate(kind string, data any) Result {
	v.compile()
	if v.initErr != nil {
		return Result{Issues: []Issue{{Message: v.initErr.Error()}}}
	}

	sch, ok := v.schemas[kind]
	if !ok {
		return Result{Issues: []Issue{{Message: fmt.Sprintf("unknown validation kind %q", kind)}}}
	}

	if err := sch.Validate(data); err != nil {
		return Result{Issues: v.issues(err)}
	}
	return Result{OK: true, Data: data}
}

func (v *JSONSchemaValidator) issues(err error) []Issue {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Issue{{Message: err.Error()}}
	}

	var out []Issue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Issue{
				Path:    "/" + strings.Join(e.InstanceLocation, "/"),
				Message: e.ErrorKind.LocalizedString(v.printer),
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// FromYAML converts a YAML document (front matter) into the JSON value
// model the validator expects.
func FromYAML(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return map[string]any{}, nil
	}
	return out, nil
}
