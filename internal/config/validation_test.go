package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "duplicate precedence",
			mutate:  func(c *Config) { c.Precedence = []string{"user", "user", "local", "managed"} },
			wantErr: []string{"precedence", "listed twice"},
		},
		{
			name:    "negative keep",
			mutate:  func(c *Config) { c.Backup.Keep = -2 },
			wantErr: []string{"backup.keep"},
		},
		{
			name:    "unknown scope",
			mutate:  func(c *Config) { c.Scopes["team"] = ScopeConfig{Root: "/x"} },
			wantErr: []string{"scopes.team", "must be one of"},
		},
		{
			name:    "missing root",
			mutate:  func(c *Config) { c.Scopes["user"] = ScopeConfig{} },
			wantErr: []string{"scopes.user.root", "is required"},
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Scopes["user"] = ScopeConfig{Root: "/x", Kinds: []string{"widget"}} },
			wantErr: []string{"scopes.user.kinds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				for _, want := range tt.wantErr {
					assert.Contains(t, err.Error(), want)
				}
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "bad")
	assert.Equal(t, "field 'a': bad", errs.Error())

	errs.Add("", "worse")
	assert.Equal(t, "validation failed: field 'a': bad; worse", errs.Error())
}
