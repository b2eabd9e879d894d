package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type SearchKind string

const (
	SearchKindDocument SearchKind = "document"
	SearchKindImage    SearchKind = "image"
)

// SearchResult is one hit from the search engine. A hit carrying document_id is a
// document; any other hit with an id is an image.
type SearchResult struct {
	Kind            SearchKind      `json:"kind"`
	ID              string          `json:"id"`
	Similarity      float64         `json:"similarity"`
	SimilarityText  string          `json:"similarityText,omitempty"`
	KeywordsMatched []string        `json:"keywordsMatched,omitempty"`
	Document        *DocumentResult `json:"document,omitempty"`
	Image           *ImageResult    `json:"image,omitempty"`
	Extra           map[string]any  `json:"extra,omitempty"`
}

type DocumentResult struct {
	DocumentID     string `json:"documentId"`
	StructuredJSON string `json:"structuredJson"`
}

type ImageResult struct {
	Caption string `json:"caption"`
	OCRText string `json:"ocrText,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query"`
	N     int    `json:"n"`
}

var knownSearchFields = map[string]bool{
	"id":               true,
	"similarity":       true,
	"keywords_matched": true,
	"document_id":      true,
	"structured_json":  true,
	"caption":          true,
	"ocr_text":         true,
}

// ParseSearchResult decodes the engine's wire shape.
func ParseSearchResult(data []byte) (SearchResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return SearchResult{}, err
	}

	var result SearchResult
	var documentID string
	rawString(fields, "id", &result.ID)
	rawString(fields, "document_id", &documentID)

	if raw, ok := fields["similarity"]; ok {
		if err := json.Unmarshal(raw, &result.Similarity); err != nil {
			return SearchResult{}, fmt.Errorf("similarity: %w", err)
		}
	}
	if raw, ok := fields["keywords_matched"]; ok {
		_ = json.Unmarshal(raw, &result.KeywordsMatched)
	}

	switch {
	case documentID != "":
		result.Kind = SearchKindDocument
		if result.ID == "" {
			result.ID = documentID
		}
		result.Document = &DocumentResult{
			DocumentID:     documentID,
			StructuredJSON: rawJSONText(fields["structured_json"]),
		}
	case result.ID != "":
		result.Kind = SearchKindImage
		image := &ImageResult{}
		rawString(fields, "caption", &image.Caption)
		rawString(fields, "ocr_text", &image.OCRText)
		result.Image = image
	default:
		return SearchResult{}, fmt.Errorf("search result has neither id nor document_id")
	}

	for key, raw := range fields {
		if knownSearchFields[key] {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		if result.Extra == nil {
			result.Extra = make(map[string]any)
		}
		result.Extra[key] = value
	}

	return result, nil
}

// SourceText is the text handed to the assistant when this hit is used as context.
func (r SearchResult) SourceText() string {
	switch r.Kind {
	case SearchKindDocument:
		if r.Document == nil {
			return ""
		}
		return fmt.Sprintf("Document %s: %s", r.ID, r.Document.StructuredJSON)
	case SearchKindImage:
		if r.Image == nil {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Image %s: %s", r.ID, r.Image.Caption)
		if r.Image.OCRText != "" {
			fmt.Fprintf(&b, " Text extracted from image: %s", r.Image.OCRText)
		}
		return b.String()
	default:
		return ""
	}
}

func rawString(fields map[string]json.RawMessage, key string, target *string) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		*target = value
	}
}

// structured_json is either a string or an inline object.
func rawJSONText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}

// SearchContext is the latest search, kept so a following chat can cite it.
type SearchContext struct {
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Sources renders every result as assistant context, in result order.
func (c *SearchContext) Sources() []string {
	if c == nil {
		return nil
	}
	sources := make([]string, 0, len(c.Results))
	for _, result := range c.Results {
		if text := result.SourceText(); text != "" {
			sources = append(sources, text)
		}
	}
	return sources
}

// Without returns a copy of the context with the result id removed.
func (c SearchContext) Without(id string) SearchContext {
	kept := make([]SearchResult, 0, len(c.Results))
	for _, result := range c.Results {
		if result.ID == id {
			continue
		}
		if result.Document != nil && result.Document.DocumentID == id {
			continue
		}
		kept = append(kept, result)
	}
	c.Results = kept
	return c
}
