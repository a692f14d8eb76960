package metadata

import "strings"

var placeholderIndicators = []string{
	"insert", "placeholder", "<", ">", "[", "]",
	"enter", "fill in", "your", "example",
}

// IsPlaceholder reports whether v is template filler text such as
// "<enter vendor name>" rather than an extracted value.
func IsPlaceholder(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	lower := strings.ToLower(s)
	for _, indicator := range placeholderIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// FilterPlaceholders returns a copy of payload without placeholder values.
func FilterPlaceholders(payload Payload) Payload {
	out := make(Payload, len(payload))
	for k, v := range payload {
		if IsPlaceholder(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// NormalizeKey lowercases key and replaces spaces with underscores.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), " ", "_")
}

// NormalizeKeys rewrites every key with NormalizeKey. When two keys collide
// the one that sorts last wins.
func NormalizeKeys(payload Payload) Payload {
	out := make(Payload, len(payload))
	for _, k := range payload.Keys() {
		out[NormalizeKey(k)] = payload[k]
	}
	return out
}
