package enrich

import (
	"encoding/json"
	"strings"
)

// ExtractObject returns the first top-level JSON object embedded in text.
// Prose, markdown fences and trailing commentary around the object are
// ignored. Candidates that fail to parse are skipped.
func ExtractObject(text string) (map[string]any, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end, ok := matchBrace(text, start)
		if !ok {
			return nil, false
		}

		var obj map[string]any
		if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil {
			return obj, true
		}

		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			return nil, false
		}
		start += 1 + next
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside string literals.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i, true
			}
		}
	}
	return 0, false
}
