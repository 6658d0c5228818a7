package llm

import "strings"

// ExtractJSON returns the JSON payload of an LLM response. Models often
// wrap their output in a fenced code block (``` or ```json) despite being
// asked for bare JSON; the first fenced block is unwrapped when present,
// otherwise the whole trimmed response is returned for the caller to parse.
func ExtractJSON(response string) string {
	s := strings.TrimSpace(response)

	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}

	inner := s[start+3:]
	// Drop an optional "json" language tag on the fence.
	if len(inner) >= 4 && strings.EqualFold(inner[:4], "json") {
		inner = inner[4:]
	}

	if end := strings.Index(inner, "```"); end >= 0 {
		inner = inner[:end]
	}
	return strings.TrimSpace(inner)
}
