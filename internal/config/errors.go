package config

import (
	"fmt"
	"sort"
	"strings"

	"toolshed/internal/store"
)

// Error types of an unreadable store.
const (
	// ErrorTypeParse: the file exists but its content does not decode.
	ErrorTypeParse = "parse"
	// ErrorTypeIO: the file or directory could not be read at all.
	ErrorTypeIO = "io"
)

// ConfigurationError describes a store that could not be read while
// scanning a scope. Tools in that store are missing from the inventory.
type ConfigurationError struct {
	FilePath  string `json:"filePath"`
	FileName  string `json:"fileName"`
	Scope     string `json:"scope"`
	Kind      string `json:"kind"`
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s/%s] %s: %s", ce.Scope, ce.Kind, ce.FileName, ce.Message)
}

// Hint suggests how to fix the store, or returns "" when there is nothing
// specific to suggest.
func (ce ConfigurationError) Hint() string {
	switch ce.ErrorType {
	case ErrorTypeParse:
		if store.IsSecondaryFormat(ce.FilePath) {
			return "fix the TOML syntax by hand"
		}
		return fmt.Sprintf("run 'toolshed repair %s'", ce.FilePath)
	case ErrorTypeIO:
		return "check that the path exists and is readable"
	}
	return ""
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(filePath, fileName, scope, kind, errorType, message string) ConfigurationError {
	return ConfigurationError{
		FilePath:  filePath,
		FileName:  fileName,
		Scope:     scope,
		Kind:      kind,
		ErrorType: errorType,
		Message:   message,
	}
}

// ConfigurationErrorCollection gathers the unreadable stores of one scan.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError `json:"errors"`
}

// NewConfigurationErrorCollection creates an empty collection.
func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{Errors: []ConfigurationError{}}
}

func (cec *ConfigurationErrorCollection) Error() string {
	switch len(cec.Errors) {
	case 0:
		return "no configuration errors"
	case 1:
		return cec.Errors[0].Error()
	}
	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

// HasErrors reports whether any store was unreadable.
func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return cec != nil && len(cec.Errors) > 0
}

// Count returns the number of errors.
func (cec *ConfigurationErrorCollection) Count() int {
	return len(cec.Errors)
}

// Add appends err.
func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

// AddError appends an error built from its parts.
func (cec *ConfigurationErrorCollection) AddError(filePath, fileName, scope, kind, errorType, message string) {
	cec.Add(NewConfigurationError(filePath, fileName, scope, kind, errorType, message))
}

// ForScope returns the errors of one scope.
func (cec *ConfigurationErrorCollection) ForScope(scope string) []ConfigurationError {
	var out []ConfigurationError
	for _, err := range cec.Errors {
		if err.Scope == scope {
			out = append(out, err)
		}
	}
	return out
}

// Summary renders the errors grouped by scope, scopes sorted, each with
// its fix hint.
func (cec *ConfigurationErrorCollection) Summary() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors"
	}

	var scopes []string
	seen := map[string]bool{}
	for _, err := range cec.Errors {
		if !seen[err.Scope] {
			seen[err.Scope] = true
			scopes = append(scopes, err.Scope)
		}
	}
	sort.Strings(scopes)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d unreadable store(s), their tools are not listed:", len(cec.Errors))
	for _, scope := range scopes {
		fmt.Fprintf(&sb, "\n  %s:", scope)
		for _, err := range cec.ForScope(scope) {
			fmt.Fprintf(&sb, "\n    - %s (%s): %s", err.FilePath, err.Kind, err.Message)
			if hint := err.Hint(); hint != "" {
				fmt.Fprintf(&sb, "\n      hint: %s", hint)
			}
		}
	}
	return sb.String()
}
