package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		result  ApplicationResult
		want    []string
		notWant []string
	}{
		{
			name: "success with numeric value",
			result: ApplicationResult{
				FileID: "F1", Success: true,
				Metadata: Payload{"value": 12.0, "vendor": "Acme"},
			},
			want: []string{
				"Metadata application successful",
				"Metadata response received with 2 fields",
				"Value field is correctly stored as a number: 12",
			},
		},
		{
			name: "success with string value",
			result: ApplicationResult{
				FileID: "F1", Success: true,
				Metadata: Payload{"value": "12"},
			},
			want: []string{"Value field is not stored as a number: 12 (string)"},
		},
		{
			name:   "success without metadata",
			result: ApplicationResult{FileID: "F1", Success: true},
			want:   []string{"Metadata application successful", "No metadata response in result"},
		},
		{
			name:   "type mismatch",
			result: ApplicationResult{FileID: "F2", Error: "Invalid value: expected number"},
			want: []string{
				"Metadata application failed",
				"Error: Invalid value: expected number",
				"Suggestion: Ensure value field is converted to a number",
			},
			notWant: []string{"Suggestion: Use update operations instead of create"},
		},
		{
			name:   "conflict",
			result: ApplicationResult{FileID: "F3", Error: "Error updating metadata: Already Exists"},
			want:   []string{"Suggestion: Use update operations instead of create"},
		},
		{
			name:    "unclassified failure",
			result:  ApplicationResult{FileID: "F4", Error: "connection reset"},
			want:    []string{"Metadata application failed", "Error: connection reset"},
			notWant: []string{"Suggestion: Ensure value field is converted to a number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Verify(tt.result)

			assert.Equal(t, tt.result.Success, report.Success)
			assert.Equal(t, tt.result.FileID, report.FileID)
			for _, d := range tt.want {
				assert.Contains(t, report.Diagnostics, d)
			}
			for _, d := range tt.notWant {
				assert.NotContains(t, report.Diagnostics, d)
			}
		})
	}
}

func TestVerify_BothClassesMatched(t *testing.T) {
	report := Verify(ApplicationResult{Error: "invalid value for field value; instance already exists"})

	assert.Contains(t, report.Diagnostics, "Suggestion: Ensure value field is converted to a number")
	assert.Contains(t, report.Diagnostics, "Suggestion: Use update operations instead of create")
}
