package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// JSONResult is the outcome of extracting a structured object from free-form
// model output. Exactly one of Parsed or Fallback holds: either the first
// balanced top-level object decoded cleanly, or extraction fell back with a
// reason. Extraction never returns an error; malformed model output is an
// expected input, not an exceptional one.
type JSONResult struct {
	Parsed   bool
	Value    json.RawMessage
	Fallback string
}

var fenceRe = regexp.MustCompile("(?i)```json\\s*|```\\s*")

// ExtractFirstJSONObject scans text for the first balanced top-level JSON
// object, ignoring any prose before or after it. Code-fence markers are
// stripped first since models habitually wrap JSON in them.
func ExtractFirstJSONObject(text string) JSONResult {
	if strings.TrimSpace(text) == "" {
		return JSONResult{Fallback: "empty output"}
	}

	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))

	start := strings.IndexByte(cleaned, '{')
	if start == -1 {
		return JSONResult{Fallback: "no object start found"}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := cleaned[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return JSONResult{Fallback: "candidate object is not valid JSON"}
				}
				return JSONResult{Parsed: true, Value: json.RawMessage(candidate)}
			}
		}
	}

	return JSONResult{Fallback: "unbalanced braces"}
}

// DecodeFirstJSONObject extracts and unmarshals the first JSON object into v.
// It reports whether decoding succeeded; on failure v is untouched.
func DecodeFirstJSONObject(text string, v any) bool {
	res := ExtractFirstJSONObject(text)
	if !res.Parsed {
		return false
	}
	return json.Unmarshal(res.Value, v) == nil
}
