package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplateID(t *testing.T) {
	tests := []struct {
		id        string
		want      *TemplateInfo
		wantScope string
	}{
		{
			id:        "enterprise_12345_invoice",
			want:      &TemplateInfo{Scope: "enterprise", EnterpriseID: "12345", TemplateKey: "invoice"},
			wantScope: "enterprise_12345",
		},
		{
			id:        "enterprise_123_my_template",
			want:      &TemplateInfo{Scope: "enterprise", EnterpriseID: "123", TemplateKey: "template"},
			wantScope: "enterprise_123",
		},
		{
			id:        "enterprise_contract",
			want:      &TemplateInfo{Scope: "enterprise", EnterpriseID: "contract", TemplateKey: "enterprise_contract"},
			wantScope: "enterprise_contract",
		},
		{
			id:        "invoice",
			want:      &TemplateInfo{Scope: "invoice", TemplateKey: "invoice"},
			wantScope: "invoice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := ParseTemplateID(tt.id)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantScope, got.ScopeID())
		})
	}

	assert.Nil(t, ParseTemplateID(""))
}
