package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// CleanJSON strips markdown code fences and surrounding prose from a model
// response, returning the span from the first '{' to the last '}'.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// DecodeJSON extracts the embedded JSON object from text and decodes it
// into out.
func DecodeJSON(text string, out any) error {
	cleaned := CleanJSON(text)
	if !strings.HasPrefix(cleaned, "{") {
		return eris.New("extract: no JSON object in response")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return eris.Wrap(err, "extract: decode JSON response")
	}
	return nil
}

// toFloat64 attempts to convert an any value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return parseFraction(n)
		}
		return f, true
	default:
		return 0, false
	}
}

// parseFraction handles "1/2" and "1 1/2".
func parseFraction(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, false
	}
	var total float64
	for _, f := range fields {
		num, den, ok := strings.Cut(f, "/")
		if !ok {
			whole, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return 0, false
			}
			total += whole
			continue
		}
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		total += n / d
	}
	return total, true
}

// toText renders a scalar as a trimmed string. Numbers lose trailing zeros.
func toText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Clamp01 bounds f to [0,1].
func Clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
