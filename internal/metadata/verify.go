package metadata

import (
	"fmt"
	"strings"
)

// Verify explains an ApplicationResult in a few human readable lines and
// classifies known failure shapes.
func Verify(result ApplicationResult) VerificationReport {
	report := VerificationReport{
		Success:     result.Success,
		FileID:      result.FileID,
		FileName:    result.FileName,
		Diagnostics: []string{},
	}

	if result.Success {
		report.Diagnostics = append(report.Diagnostics, "Metadata application successful")
		if result.Metadata == nil {
			report.Diagnostics = append(report.Diagnostics, "No metadata response in result")
			return report
		}
		report.Diagnostics = append(report.Diagnostics,
			fmt.Sprintf("Metadata response received with %d fields", len(result.Metadata)))

		if value, ok := result.Metadata[valueField]; ok {
			if isNumeric(value) {
				report.Diagnostics = append(report.Diagnostics,
					fmt.Sprintf("Value field is correctly stored as a number: %v", value))
			} else {
				report.Diagnostics = append(report.Diagnostics,
					fmt.Sprintf("Value field is not stored as a number: %v (%T)", value, value))
			}
		}
		return report
	}

	report.Diagnostics = append(report.Diagnostics, "Metadata application failed")
	if result.Error == "" {
		return report
	}
	report.Diagnostics = append(report.Diagnostics, "Error: "+result.Error)

	lower := strings.ToLower(result.Error)
	if strings.Contains(lower, "invalid value") && strings.Contains(lower, "value") {
		report.Diagnostics = append(report.Diagnostics,
			"Error indicates value field type mismatch",
			"Suggestion: Ensure value field is converted to a number")
	}
	if strings.Contains(lower, "already exists") {
		report.Diagnostics = append(report.Diagnostics,
			"Error indicates metadata already exists",
			"Suggestion: Use update operations instead of create")
	}
	return report
}
