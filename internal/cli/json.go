package cli

import (
	"fmt"
	"regexp"
	"strings"
)

// jsonTokenRegex matches, in order of preference:
//   - object keys: a quoted string followed by a colon
//   - string values: a quoted string on its own
//   - the literals true, false and null
//   - numbers, with optional fraction and exponent
//
// Punctuation is never matched and so is left uncolored.
var jsonTokenRegex = regexp.MustCompile(`("(\\u[a-zA-Z0-9]{4}|\\[^u]|[^\\"])*"(\s*:)?|\b(true|false|null)\b|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?)`)

// HighlightJSON applies ANSI colors to a JSON fragment. It works on
// minified and indented input alike and never re-parses the document.
func HighlightJSON(jsonStr string) string {
	if !enabled() {
		return jsonStr
	}

	return jsonTokenRegex.ReplaceAllStringFunc(jsonStr, func(token string) string {
		switch {
		case strings.HasSuffix(token, ":"):
			// Color the key, then put the colon back outside the escape.
			key := token[:len(token)-1]
			return fmt.Sprintf("%s%s%s:", Blue, key, ResetCode)
		case strings.HasPrefix(token, "\""):
			// Provider names, models and messages.
			return fmt.Sprintf("%s%s%s", Green, token, ResetCode)
		case token == "true" || token == "false":
			// Flags such as eligible.
			return fmt.Sprintf("%s%s%s", Yellow, token, ResetCode)
		case token == "null":
			return fmt.Sprintf("%s%s%s", DimCode, token, ResetCode)
		default:
			// Counts, latencies and status codes.
			return fmt.Sprintf("%s%s%s", Purple, token, ResetCode)
		}
	})
}
