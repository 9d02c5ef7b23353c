package bank

import (
	"encoding/json"
	"strings"
)

// ParseAnswers reads a correct-answer cell. A leading '[' is tried as a JSON
// array, then '|' separates values; anything else is a single answer. Values
// are trimmed and blanks dropped.
func ParseAnswers(raw string) []string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "[") {
		var vals []any
		if err := json.Unmarshal([]byte(text), &vals); err == nil {
			out := make([]string, 0, len(vals))
			for _, v := range vals {
				s := strings.TrimSpace(stringify(v))
				if s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	if strings.Contains(text, "|") {
		var out []string
		for _, p := range strings.Split(text, "|") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{text}
}

// ParseAllowMultiple is the stored-row rule: an explicit truthy flag or more
// than one correct answer.
func ParseAllowMultiple(raw string, answers []string) bool {
	v, _ := parseFlag(raw)
	return v || len(answers) > 1
}

// parseFlag reports the boolean value of a cell and whether it was set at all.
func parseFlag(raw string) (value, present bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return false, false
	case "true", "1", "yes", "y":
		return true, true
	default:
		return false, true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
