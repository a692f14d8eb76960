package applymetadata

import "box-metadata-workers/internal/common/validation"

// InputVariables are the process variables the worker fetches.
var InputVariables = []string{
	"sessionId",
	"results",
	"selectedFiles",
	"fileConfigs",
	"metadataConfig",
	"options",
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"sessionId": {
				Type:        "string",
				Description: "Session to load from the configured session source",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(255),
			},
			"results": {
				Type:        "object",
				Description: "Extraction result envelopes keyed by file id",
			},
			"selectedFiles": {
				Type:        "array",
				Description: "Files selected for extraction",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"id"},
					Properties: map[string]validation.Property{
						"id":   {Description: "Box file id, string or number"},
						"name": {Type: "string"},
					},
				},
			},
			"fileConfigs": {
				Type:        "object",
				Description: "Extraction configuration keyed by file id",
				AdditionalProperties: &validation.Property{
					Type: "object",
					Properties: map[string]validation.Property{
						"extraction_method": {
							Type: "string",
							Enum: []string{"structured", "freeform"},
						},
						"template_id":   {Type: "string"},
						"custom_prompt": {Type: "string"},
					},
				},
			},
			"metadataConfig": {
				Type:        "object",
				Description: "Session-wide template selection",
				Properties: map[string]validation.Property{
					"use_template": {Type: "boolean"},
					"template_id":  {Type: "string"},
				},
			},
			"options": {
				Type:        "object",
				Description: "Per-job overrides of the worker defaults",
				Properties: map[string]validation.Property{
					"timeoutSeconds": {
						Type:    "number",
						Minimum: validation.FloatPtr(10),
						Maximum: validation.FloatPtr(300),
					},
					"normalizeKeys":      {Type: "boolean"},
					"filterPlaceholders": {Type: "boolean"},
				},
			},
		},
		AdditionalProperties: false,
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"metadataApplied", "totalFiles", "succeededCount", "failedCount", "runId"},
		Properties: map[string]validation.Property{
			"metadataApplied": {
				Type:        "boolean",
				Description: "True when every file in the working set was applied",
			},
			"message": {
				Type:        "string",
				Description: "Run summary",
			},
			"totalFiles":     {Type: "integer"},
			"succeededCount": {Type: "integer"},
			"failedCount":    {Type: "integer"},
			"runId":          {Type: "string"},
			"failures": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"fileId", "error"},
				},
			},
		},
		AdditionalProperties: false,
	}
}
