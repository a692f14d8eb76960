package box

// User is the authenticated Box account returned by /users/me.
type User struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Login string `json:"login"`
}

// File is the subset of a Box file object used to label results.
type File struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// PatchOperation is one JSON-Patch operation for a metadata instance update.
type PatchOperation struct {
	Op    string      `json:"op"`
	Path  string      `json:"path"`
	Value interface{} `json:"value,omitempty"`
}

// TemplateField describes one field of a metadata template.
type TemplateField struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Key         string `json:"key"`
	DisplayName string `json:"displayName,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
}

// TemplateSchema is a metadata template definition.
type TemplateSchema struct {
	ID          string          `json:"id,omitempty"`
	Type        string          `json:"type,omitempty"`
	Scope       string          `json:"scope"`
	TemplateKey string          `json:"templateKey"`
	DisplayName string          `json:"displayName,omitempty"`
	Hidden      bool            `json:"hidden,omitempty"`
	Fields      []TemplateField `json:"fields"`
}

// FieldTypes maps field keys to their declared type tags.
func (s *TemplateSchema) FieldTypes() map[string]string {
	if s == nil {
		return nil
	}
	types := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		types[f.Key] = f.Type
	}
	return types
}

const (
	GlobalScope        = "global"
	PropertiesTemplate = "properties"

	jsonContentType      = "application/json"
	jsonPatchContentType = "application/json-patch+json"
)
