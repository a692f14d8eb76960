package metadata

import "strings"

// ParseTemplateID splits an identifier like "enterprise_12345_invoice" into
// its parts. The first segment is the scope, the second the enterprise id,
// and the last segment the template key when there are more than two
// segments; otherwise the whole identifier is the key. An empty id yields nil.
func ParseTemplateID(id string) *TemplateInfo {
	if id == "" {
		return nil
	}
	parts := strings.Split(id, "_")

	info := &TemplateInfo{Scope: parts[0], TemplateKey: id}
	if len(parts) > 1 {
		info.EnterpriseID = parts[1]
	}
	if len(parts) > 2 {
		info.TemplateKey = parts[len(parts)-1]
	}
	return info
}

// ScopeID is the scope used in Box metadata URLs, e.g. "enterprise_12345".
func (t *TemplateInfo) ScopeID() string {
	if t.EnterpriseID == "" {
		return t.Scope
	}
	return t.Scope + "_" + t.EnterpriseID
}
