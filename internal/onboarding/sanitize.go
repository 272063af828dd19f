package onboarding

import (
	"encoding/json"
	"strings"
)

// Sanitize recovers a JSON object from a provider response. It tries the
// whole text, then each fenced block in order, then the first balanced
// {...} span. It returns an empty map when nothing parses.
func Sanitize(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	if m, ok := parseObject(raw); ok {
		return m
	}
	for _, block := range fencedBlocks(raw) {
		if m, ok := parseObject(block); ok {
			return m
		}
	}
	if span, ok := firstBalancedObject(raw); ok {
		if m, ok := parseObject(span); ok {
			return m
		}
	}
	return map[string]any{}
}

func parseObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// fencedBlocks returns the contents of ``` fences with any leading language
// tag stripped. An unterminated final fence is ignored.
func fencedBlocks(s string) []string {
	parts := strings.Split(s, "```")
	var out []string
	for i := 1; i+1 < len(parts); i += 2 {
		block := strings.TrimSpace(parts[i])
		if nl := strings.IndexByte(block, '\n'); nl >= 0 {
			tag := strings.TrimSpace(block[:nl])
			if tag != "" && !strings.ContainsAny(tag, "{[\"") {
				block = block[nl+1:]
			}
		} else if strings.HasPrefix(strings.ToLower(block), "json") {
			block = block[len("json"):]
		}
		out = append(out, strings.TrimSpace(block))
	}
	return out
}

// firstBalancedObject scans for the first '{' and returns the span up to its
// matching '}', skipping braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}
