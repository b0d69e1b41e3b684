package openai

import (
	"regexp"
	"strings"
)

// stripCodeFence removes a surrounding markdown code fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced {...} object in s, skipping
// braces inside string literals. Models often wrap JSON in prose.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// repairJSON fixes two common small-model mistakes: trailing commas, and keys
// that lost their opening quote (`{ reason": "..."}` becomes `{ "reason": "..."}`).
func repairJSON(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	src := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 16)

	for i := 0; i < len(src); {
		ch := src[i]
		out.WriteRune(ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}
		for i < len(src) && isSpace(src[i]) {
			out.WriteRune(src[i])
			i++
		}
		if i >= len(src) || !isLetter(src[i]) {
			continue
		}
		end := i
		for end < len(src) && (isLetter(src[end]) || src[end] == '_') {
			end++
		}
		if end+1 < len(src) && src[end] == '"' && src[end+1] == ':' {
			out.WriteRune('"')
		}
		out.WriteString(string(src[i:end]))
		i = end
	}
	return out.String()
}
