// Package session loads the upstream data a metadata run consumes: the
// extraction results per file, the user's file selection and the per-file
// template configuration.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	ExtractionStructured = "structured"
	ExtractionFreeform   = "freeform"
)

// SelectedFile is a file the user picked for extraction.
type SelectedFile struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts numeric Box ids as well as strings.
func (f *SelectedFile) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Name = raw.Name
	f.ID = ""
	if len(raw.ID) == 0 || string(raw.ID) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.ID, &s); err == nil {
		f.ID = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.ID, &n); err != nil {
		return fmt.Errorf("invalid file id %s: %w", raw.ID, err)
	}
	f.ID = n.String()
	return nil
}

// FileConfig is the extraction configuration chosen for one file.
type FileConfig struct {
	ExtractionMethod string `json:"extraction_method"`
	TemplateID       string `json:"template_id"`
	CustomPrompt     string `json:"custom_prompt"`
}

// DefaultFileConfig applies to files without an explicit configuration.
func DefaultFileConfig() FileConfig {
	return FileConfig{ExtractionMethod: ExtractionStructured}
}

// MetadataConfig is the session-wide template choice.
type MetadataConfig struct {
	UseTemplate bool   `json:"use_template"`
	TemplateID  string `json:"template_id"`
}

// Session is everything a run needs besides the Box client.
type Session struct {
	ID             string                `json:"sessionId,omitempty"`
	Results        ResultSet             `json:"results"`
	SelectedFiles  []SelectedFile        `json:"selectedFiles,omitempty"`
	FileConfigs    map[string]FileConfig `json:"fileConfigs,omitempty"`
	MetadataConfig *MetadataConfig       `json:"metadataConfig,omitempty"`
}

// FileConfig returns the configuration for fileID or the default.
func (s *Session) FileConfig(fileID string) FileConfig {
	if cfg, ok := s.FileConfigs[fileID]; ok {
		if cfg.ExtractionMethod == "" {
			cfg.ExtractionMethod = ExtractionStructured
		}
		return cfg
	}
	return DefaultFileConfig()
}

// ResultSet maps file ids to raw result envelopes and remembers insertion
// order, which JSON objects decoded into a Go map would lose.
type ResultSet struct {
	ids    []string
	values map[string]interface{}
}

func NewResultSet() *ResultSet {
	return &ResultSet{values: map[string]interface{}{}}
}

// Set adds or replaces the envelope for id. Replacing keeps the original position.
func (r *ResultSet) Set(id string, envelope interface{}) {
	if r.values == nil {
		r.values = map[string]interface{}{}
	}
	if _, exists := r.values[id]; !exists {
		r.ids = append(r.ids, id)
	}
	r.values[id] = envelope
}

func (r ResultSet) Get(id string) (interface{}, bool) {
	v, ok := r.values[id]
	return v, ok
}

// IDs returns file ids in insertion order.
func (r ResultSet) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r ResultSet) Len() int {
	return len(r.ids)
}

// UnmarshalJSON decodes a JSON object token by token so key order survives.
func (r *ResultSet) UnmarshalJSON(data []byte) error {
	r.ids = nil
	r.values = map[string]interface{}{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("results must be a JSON object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read result key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected result key %v", keyTok)
		}
		var envelope interface{}
		if err := dec.Decode(&envelope); err != nil {
			return fmt.Errorf("failed to decode result for file %s: %w", key, err)
		}
		r.Set(key, envelope)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}
	return nil
}

// MarshalJSON writes the envelopes back in insertion order.
func (r ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range r.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[id])
		if err != nil {
			return nil, fmt.Errorf("failed to encode result for file %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
