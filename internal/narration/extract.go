package narration

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Fenced code block, with or without a language tag. (?s) so the body may
// span lines.
var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractBlock finds the first balanced JSON object embedded in free text.
// It tries fenced ```json blocks first, then scans for a brace-balanced
// substring starting at each '{'. Returns false when nothing in the text
// parses as a JSON object.
func extractBlock(raw string) (string, bool) {
	if matches := fencedBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		candidate := strings.TrimSpace(matches[1])
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}

	for start := 0; start < len(raw); start++ {
		if raw[start] != '{' {
			continue
		}
		candidate, ok := balancedFrom(raw, start)
		if ok && json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}

	return "", false
}

// balancedFrom returns the substring from start to the brace that closes
// it, tracking string literals and escapes so braces inside narrative
// text don't throw off the count.
func balancedFrom(raw string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		ch := raw[i]

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], true
				}
			}
		}
	}

	return "", false
}
