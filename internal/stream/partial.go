package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/jsonc"
)

const StreamingMarker = "... (streaming)"

// Rendered is the display form of a possibly incomplete JSON document.
type Rendered struct {
	Text      string `json:"text"`
	Complete  bool   `json:"complete"`
	Remainder string `json:"remainder,omitempty"`
}

// RenderPartialJSON pretty-prints as much of acc as is balanced. A fully valid document
// is rendered as is; otherwise the longest prefix whose braces and brackets both close is
// pretty-printed and the streaming marker stands in for the rest. Without any such
// prefix the raw text is shown.
//
// Braces inside string literals are counted too, so a prefix can be misjudged; the
// parse step rejects those and a shorter boundary is tried.
func RenderPartialJSON(acc string) Rendered {
	trimmed := strings.TrimSpace(acc)
	if trimmed == "" {
		return Rendered{Text: StreamingMarker}
	}

	if pretty, ok := indent(trimmed); ok {
		return Rendered{Text: pretty, Complete: true}
	}

	start := strings.IndexAny(acc, "{[")
	if start >= 0 {
		boundaries := balancedBoundaries(acc[start:])
		for i := len(boundaries) - 1; i >= 0; i-- {
			end := start + boundaries[i]
			if pretty, ok := indent(acc[start:end]); ok {
				return Rendered{
					Text:      pretty + "\n" + StreamingMarker,
					Remainder: acc[end:],
				}
			}
		}
	}

	return Rendered{Text: acc + "\n" + StreamingMarker}
}

// balancedBoundaries lists every offset just past a closing character where both the
// brace and bracket depth return to zero. Scanning stops at the first unmatched closer.
func balancedBoundaries(text string) []int {
	var boundaries []int
	braces, brackets := 0, 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		default:
			continue
		}

		if braces < 0 || brackets < 0 {
			break
		}
		if braces == 0 && brackets == 0 && (text[i] == '}' || text[i] == ']') {
			boundaries = append(boundaries, i+1)
		}
	}
	return boundaries
}

// FinalizeJSON normalises a finished document that may carry comments or trailing
// commas and pretty-prints it. It reports false when the text is not JSON even then.
func FinalizeJSON(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if pretty, ok := indent(trimmed); ok {
		return pretty, true
	}
	return indent(string(jsonc.ToJSON([]byte(trimmed))))
}

func indent(text string) (string, bool) {
	if !json.Valid([]byte(text)) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return "", false
	}
	return buf.String(), true
}
