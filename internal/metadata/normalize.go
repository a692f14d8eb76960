package metadata

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const valueField = "value"

var (
	signedDigits  = regexp.MustCompile(`^-?\d+$`)
	nonNumeric    = regexp.MustCompile(`[^\d.-]`)
	canonicalDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

	// Month-first is tried before day-first, so 03/04/2024 is March 4th.
	dateLayouts = []string{"2006-1-2", "1/2/2006", "2/1/2006", "2006/1/2"}
)

// CanonicalDateLayout is the timestamp format Box expects for date fields.
const CanonicalDateLayout = "2006-01-02T15:04:05.000Z"

// Normalize coerces field values ahead of a Box create call. The "value" key
// always gets the numeric heuristic; keys typed float or date in fieldTypes
// are coerced to match. The input is never modified and Normalize never
// fails: anything it cannot coerce is left unchanged and reported.
func Normalize(payload Payload, fieldTypes FieldTypeMap) (Payload, []Conversion) {
	out := payload.Clone()
	var conversions []Conversion

	if raw, ok := out[valueField].(string); ok {
		c := coerceValueField(raw)
		out[valueField] = c.To
		conversions = append(conversions, c)
	}

	keys := make([]string, 0, len(fieldTypes))
	for k := range fieldTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		current, ok := out[key]
		if !ok {
			continue
		}
		var c Conversion
		switch fieldTypes[key] {
		case FieldTypeFloat:
			if isNumeric(current) {
				continue
			}
			c = coerceFloatField(key, current)
		case FieldTypeDate:
			s, isString := current.(string)
			if !isString || canonicalDate.MatchString(s) {
				continue
			}
			c = coerceDateField(key, s)
		default:
			continue
		}
		out[key] = c.To
		conversions = append(conversions, c)
	}

	return out, conversions
}

func coerceValueField(raw string) Conversion {
	c := Conversion{Key: valueField, From: raw, To: raw}

	if signedDigits.MatchString(raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.To, c.Outcome = n, Converted
			return c
		}
	}

	stripped := nonNumeric.ReplaceAllString(raw, "")
	if stripped == "" {
		c.Warning = fmt.Sprintf("value %q doesn't contain numeric characters, keeping as is", raw)
		return c
	}
	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		c.Warning = fmt.Sprintf("could not convert value %q to a number: %v", raw, err)
		return c
	}
	c.To, c.Outcome = f, Converted
	return c
}

func coerceFloatField(key string, current interface{}) Conversion {
	c := Conversion{Key: key, From: current, To: current}

	raw, ok := current.(string)
	if !ok {
		c.Warning = fmt.Sprintf("field %q holds %T, expected a number", key, current)
		return c
	}

	stripped := nonNumeric.ReplaceAllString(raw, "")
	if stripped == "" {
		c.Warning = fmt.Sprintf("field %q value %q doesn't contain numeric characters, keeping as is", key, raw)
		return c
	}
	if signedDigits.MatchString(stripped) {
		if n, err := strconv.ParseInt(stripped, 10, 64); err == nil {
			c.To, c.Outcome = n, Converted
			return c
		}
	}
	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		c.Warning = fmt.Sprintf("could not convert field %q to float: %v", key, err)
		return c
	}
	c.To, c.Outcome = f, Converted
	return c
}

// coerceDateField never warns: an unrecognised date is passed through for
// Box to judge.
func coerceDateField(key, raw string) Conversion {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return Conversion{
			Key:     key,
			Outcome: Converted,
			From:    raw,
			To:      t.Format(CanonicalDateLayout),
		}
	}
	return Conversion{Key: key, From: raw, To: raw}
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
