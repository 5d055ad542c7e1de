package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"toolshed/internal/tool"
)

// ValidationError is one problem with a config.yaml field.
type ValidationError struct {
	Field   string
	Message string
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "no validation errors"
	case 1:
		return ve[0].Error()
	}
	messages := make([]string, len(ve))
	for i, err := range ve {
		messages[i] = err.Error()
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add records a problem with field.
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// oneOf records a problem when value is not in allowed.
func (ve *ValidationErrors) oneOf(field, value string, allowed []string) bool {
	if slices.Contains(allowed, value) {
		return true
	}
	ve.Add(field, fmt.Sprintf("%q must be one of: %s", value, strings.Join(allowed, ", ")))
	return false
}

func names[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Validate checks the configuration and reports every problem found,
// scopes in name order.
func (c Config) Validate() error {
	var errs ValidationErrors

	if _, err := tool.ParsePrecedence(c.Precedence); err != nil {
		errs.Add("precedence", err.Error())
	}
	if c.Backup.Keep < 0 {
		errs.Add("backup.keep", fmt.Sprintf("must not be negative, got %d", c.Backup.Keep))
	}

	scopeNames := make([]string, 0, len(c.Scopes))
	for name := range c.Scopes {
		scopeNames = append(scopeNames, name)
	}
	sort.Strings(scopeNames)

	for _, name := range scopeNames {
		sc := c.Scopes[name]
		field := "scopes." + name
		if !errs.oneOf(field, name, names(tool.AllScopes)) {
			continue
		}
		if strings.TrimSpace(sc.Root) == "" {
			errs.Add(field+".root", "is required")
		}
		for _, k := range sc.Kinds {
			errs.oneOf(field+".kinds", k, names(tool.AllKinds))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
