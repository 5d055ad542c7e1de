package tool

// Record is the flat wire shape of a Tool, used for JSON and YAML output.
type Record struct {
	ID           string         `json:"id" yaml:"id"`
	Kind         Kind           `json:"kind" yaml:"kind"`
	Name         string         `json:"name" yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Scope        Scope          `json:"scope" yaml:"scope"`
	Status       Status         `json:"status" yaml:"status"`
	StatusDetail string         `json:"statusDetail,omitempty" yaml:"statusDetail,omitempty"`
	Source       Source         `json:"source" yaml:"source"`
	Effective    bool           `json:"effective" yaml:"effective"`
	CanonicalKey string         `json:"canonicalKey" yaml:"canonicalKey"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ScopeEntries []ScopeEntry   `json:"scopeEntries,omitempty" yaml:"scopeEntries,omitempty"`
}

// Record flattens t.
func (t Tool) Record() Record {
	r := Record{
		ID:           t.ID,
		Kind:         t.Kind,
		Name:         t.Name,
		Description:  t.Description,
		Scope:        t.Scope,
		Status:       t.Status,
		StatusDetail: t.StatusDetail,
		Source:       t.Source,
		Effective:    t.Effective,
		CanonicalKey: CanonicalKey(t),
		ScopeEntries: t.ScopeEntries,
	}
	if t.Spec != nil {
		r.Metadata = t.Spec.metadata()
	}
	return r
}

// Records flattens a list of tools.
func Records(tools []Tool) []Record {
	out := make([]Record, len(tools))
	for i, t := range tools {
		out[i] = t.Record()
	}
	return out
}
