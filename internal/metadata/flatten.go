package metadata

const answerKey = "answer"

// nonSchemaKeys are added by the extraction agent and never belong in a Box
// metadata instance.
var nonSchemaKeys = []string{"ai_agent_info", "created_at", "completion_reason"}

// Flatten unwraps an extraction envelope. When payload["answer"] is a mapping
// the result holds exactly its entries; otherwise it is a copy of payload.
// The non-schema keys are removed in both cases.
func Flatten(payload Payload) Payload {
	var out Payload
	if answer, ok := AsPayload(payload[answerKey]); ok {
		out = answer.Clone()
	} else {
		out = payload.Clone()
	}

	for _, key := range nonSchemaKeys {
		delete(out, key)
	}
	return out
}
