// Package metadata turns extracted key/value payloads into Box metadata
// instances: coercion, flattening, remote application and verification.
package metadata

import "sort"

// Payload maps a metadata field key to its value. Values are strings,
// numbers or nested mappings as decoded from JSON.
type Payload map[string]interface{}

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the payload keys in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsPayload reports whether v is a key/value mapping and returns it.
func AsPayload(v interface{}) (Payload, bool) {
	switch m := v.(type) {
	case Payload:
		return m, m != nil
	case map[string]interface{}:
		return Payload(m), m != nil
	default:
		return nil, false
	}
}

// FieldTypeMap maps field keys to the template's declared type tag.
type FieldTypeMap map[string]string

const (
	FieldTypeFloat = "float"
	FieldTypeDate  = "date"
)

// TemplateInfo identifies a structured metadata template. A nil *TemplateInfo
// means free-form properties.
type TemplateInfo struct {
	Scope        string `json:"scope"`
	EnterpriseID string `json:"enterpriseId,omitempty"`
	TemplateKey  string `json:"templateKey"`
}

// ApplicationResult is the outcome of applying metadata to one file.
type ApplicationResult struct {
	FileID   string  `json:"fileId"`
	FileName string  `json:"fileName"`
	Success  bool    `json:"success"`
	Metadata Payload `json:"metadata,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// VerificationReport holds human readable diagnostics for one result.
type VerificationReport struct {
	Success     bool     `json:"success"`
	FileID      string   `json:"fileId"`
	FileName    string   `json:"fileName"`
	Diagnostics []string `json:"diagnostics"`
}

// Outcome of a single coercion attempt.
type Outcome int

const (
	Unchanged Outcome = iota
	Converted
)

func (o Outcome) String() string {
	if o == Converted {
		return "converted"
	}
	return "unchanged"
}

// Conversion records what the normalizer did with one field.
type Conversion struct {
	Key     string
	Outcome Outcome
	From    interface{}
	To      interface{}
	Warning string
}
