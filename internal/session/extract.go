package session

import (
	"encoding/json"

	"box-metadata-workers/internal/metadata"
)

// ExtractMetadata pulls the extracted fields out of a raw result envelope.
// The envelope's "results" entry is preferred; a JSON-encoded string is
// decoded when it holds an object; an "answer" string holding a JSON object
// wins over both. Anything else is returned as is.
func ExtractMetadata(envelope interface{}) interface{} {
	extracted := envelope

	obj, isObject := metadata.AsPayload(envelope)
	if isObject {
		if results, ok := obj["results"]; ok {
			extracted = results
		}
	}

	if s, ok := extracted.(string); ok {
		if parsed, ok := decodeObject(s); ok {
			extracted = parsed
		}
	}

	if isObject {
		if answer, ok := obj["answer"].(string); ok {
			if parsed, ok := decodeObject(answer); ok {
				extracted = parsed
			}
		}
	}

	return extracted
}

func decodeObject(s string) (metadata.Payload, bool) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(s), &parsed); err != nil || parsed == nil {
		return nil, false
	}
	return metadata.Payload(parsed), true
}
