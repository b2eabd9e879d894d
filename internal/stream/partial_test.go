package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPartialJSON(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantText      string
		wantComplete  bool
		wantRemainder string
	}{
		{
			name:         "complete document",
			input:        `{"a":1}`,
			wantText:     "{\n  \"a\": 1\n}",
			wantComplete: true,
		},
		{
			name:          "balanced prefix then open object",
			input:         `{"a":1} {"b":`,
			wantText:      "{\n  \"a\": 1\n}\n" + StreamingMarker,
			wantRemainder: ` {"b":`,
		},
		{
			name:          "array prefix",
			input:         `[1,2][3`,
			wantText:      "[\n  1,\n  2\n]\n" + StreamingMarker,
			wantRemainder: `[3`,
		},
		{
			name:     "no balanced boundary",
			input:    `{"a": {"b": [1, 2`,
			wantText: `{"a": {"b": [1, 2` + "\n" + StreamingMarker,
		},
		{
			name:     "not json at all",
			input:    `The document describes`,
			wantText: "The document describes\n" + StreamingMarker,
		},
		{
			name:     "empty",
			input:    "  ",
			wantText: StreamingMarker,
		},
		{
			name:          "leading text before the document",
			input:         "Here you go: {\"a\":true} {",
			wantText:      "{\n  \"a\": true\n}\n" + StreamingMarker,
			wantRemainder: " {",
		},
		{
			name:          "two balanced values falls back to the last parseable one",
			input:         `{"a":1}{"b":2}{"c"`,
			wantText:      "{\n  \"a\": 1\n}\n" + StreamingMarker,
			wantRemainder: `{"b":2}{"c"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderPartialJSON(tt.input)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantComplete, got.Complete)
			assert.Equal(t, tt.wantRemainder, got.Remainder)
		})
	}
}

// Braces inside strings are counted like structural ones.
func TestRenderPartialJSON_BraceInsideStringFallsBackToRaw(t *testing.T) {
	input := `{"a": "}", "b":`

	got := RenderPartialJSON(input)

	assert.False(t, got.Complete)
	assert.Equal(t, input+"\n"+StreamingMarker, got.Text)
}

func TestRenderPartialJSON_GrowingInputAlwaysEndsWithMarker(t *testing.T) {
	document := `{"title": "Annual report", "sections": [{"name": "intro"}, {"name": "summary"}]}`

	for i := 1; i < len(document); i++ {
		got := RenderPartialJSON(document[:i])
		assert.True(t, strings.HasSuffix(got.Text, StreamingMarker), "prefix %q", document[:i])
	}
	assert.True(t, RenderPartialJSON(document).Complete)
}

func TestFinalizeJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"valid", `{"a":[1,2]}`, "{\n  \"a\": [\n    1,\n    2\n  ]\n}", true},
		{"trailing comma", `{"a": 1,}`, "{\n  \"a\": 1\n}", true},
		{"comment", "{\n  // produced by the model\n  \"a\": 1\n}", "{\n  \"a\": 1\n}", true},
		{"not json", `hello`, "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FinalizeJSON(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
