package stream

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result is the open payload of a complete event. Known ingestion fields are lifted
// into typed members; everything else stays in Extra.
type Result struct {
	Status           string
	DocumentID       string
	ImageID          string
	Caption          string
	OCRText          string
	Keywords         []string
	VectorLength     int
	ContentLength    int
	StructuredJSON   string
	FilePath         string
	OriginalFilename string
	Extra            map[string]any

	// known keys that arrived on the wire, zero valued or not
	present map[string]bool
}

// Field is one rendered line of a result, in display order.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

var resultFieldOrder = []struct {
	key   string
	label string
}{
	{"document_id", "Document ID"},
	{"image_id", "Image ID"},
	{"original_filename", "File"},
	{"caption", "Caption"},
	{"ocr_text", "Extracted Text"},
	{"keywords", "Keywords"},
	{"content_length", "Content Length"},
	{"vector_length", "Vector Length"},
	{"file_path", "Stored At"},
	{"status", "Status"},
}

func ResultFromFields(fields map[string]any) Result {
	var r Result
	for key, value := range fields {
		switch key {
		case "status":
			r.Status = asString(value)
		case "document_id":
			r.DocumentID = asString(value)
		case "image_id":
			r.ImageID = asString(value)
		case "caption":
			r.Caption = asString(value)
		case "ocr_text":
			r.OCRText = asString(value)
		case "keywords":
			r.Keywords = asStrings(value)
		case "vector_length":
			r.VectorLength = asInt(value)
		case "content_length":
			r.ContentLength = asInt(value)
		case "structured_json":
			r.StructuredJSON = asJSONText(value)
		case "file_path":
			r.FilePath = asString(value)
		case "original_filename":
			r.OriginalFilename = asString(value)
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]any)
			}
			r.Extra[key] = value
			continue
		}
		if r.present == nil {
			r.present = make(map[string]bool)
		}
		r.present[key] = true
	}
	return r
}

// ID is the identifier the platform assigned to the ingested item.
func (r Result) ID() string {
	if r.DocumentID != "" {
		return r.DocumentID
	}
	if r.ImageID != "" {
		return r.ImageID
	}
	if id, ok := r.Extra["id"]; ok {
		return asString(id)
	}
	return ""
}

// Map flattens the result back into its wire shape. A known field is kept when it
// is set or when it arrived, even empty.
func (r Result) Map() map[string]any {
	out := make(map[string]any, len(r.Extra)+11)
	for key, value := range r.Extra {
		out[key] = value
	}
	setIf := func(key string, value any, set bool) {
		if set || r.present[key] {
			out[key] = value
		}
	}
	setIf("status", r.Status, r.Status != "")
	setIf("document_id", r.DocumentID, r.DocumentID != "")
	setIf("image_id", r.ImageID, r.ImageID != "")
	setIf("caption", r.Caption, r.Caption != "")
	setIf("ocr_text", r.OCRText, r.OCRText != "")
	setIf("structured_json", r.StructuredJSON, r.StructuredJSON != "")
	setIf("file_path", r.FilePath, r.FilePath != "")
	setIf("original_filename", r.OriginalFilename, r.OriginalFilename != "")
	keywords := r.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	setIf("keywords", keywords, r.Keywords != nil)
	setIf("vector_length", r.VectorLength, r.VectorLength != 0)
	setIf("content_length", r.ContentLength, r.ContentLength != 0)
	return out
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = ResultFromFields(fields)
	return nil
}

// Fields renders whichever known fields are present, followed by extra fields sorted
// by key. structured_json is left to the JSON renderer.
func (r Result) Fields() []Field {
	flat := r.Map()
	fields := make([]Field, 0, len(flat))
	seen := map[string]bool{"structured_json": true}

	for _, known := range resultFieldOrder {
		seen[known.key] = true
		value, ok := flat[known.key]
		if !ok {
			continue
		}
		fields = append(fields, Field{Key: known.key, Label: known.label, Value: display(value)})
	}

	extraKeys := make([]string, 0, len(flat))
	for key := range flat {
		if !seen[key] {
			extraKeys = append(extraKeys, key)
		}
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		fields = append(fields, Field{Key: key, Label: labelFor(key), Value: display(flat[key])})
	}
	return fields
}

func labelFor(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + word[size:]
	}
	return strings.Join(words, " ")
}

func display(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ", ")
	case []any:
		return strings.Join(asStrings(v), ", ")
	case map[string]any:
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return asString(v)
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func asStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, asString(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func asInt(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// structured_json arrives either as text or as an already-decoded object.
func asJSONText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
