// Package stream decodes the `data: {json}` progress streams produced by the platform's
// ingestion and chat endpoints and maps them onto composite progress updates.
package stream

import (
	"encoding/json"
	"fmt"
)

type Type string

const (
	TypeProgress Type = "progress"
	TypeComplete Type = "complete"
	TypeError    Type = "error"
)

// Event is one decoded stream record. Fields the decoder does not know about are kept
// in Extra so producer-added keys survive to the renderer.
type Event struct {
	Type    Type
	Percent *float64
	Stage   string
	Detail  string
	Content string
	Extra   map[string]any
}

var knownEventFields = map[string]bool{
	"type":    true,
	"percent": true,
	"stage":   true,
	"detail":  true,
	"content": true,
}

func (e Event) IsTerminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

// Result reads the open payload of a complete event.
func (e Event) Result() Result {
	return ResultFromFields(e.Extra)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var decoded Event
	if raw, ok := fields["type"]; ok {
		var t string
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("event type is not a string: %w", err)
		}
		decoded.Type = Type(t)
	}

	// A non-numeric percent is producer noise; the record is still usable.
	if raw, ok := fields["percent"]; ok {
		var percent float64
		if err := json.Unmarshal(raw, &percent); err == nil {
			decoded.Percent = &percent
		}
	}

	decodeString(fields, "stage", &decoded.Stage)
	decodeString(fields, "detail", &decoded.Detail)
	decodeString(fields, "content", &decoded.Content)

	for key, raw := range fields {
		if knownEventFields[key] {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if decoded.Extra == nil {
			decoded.Extra = make(map[string]any)
		}
		decoded.Extra[key] = value
	}

	*e = decoded
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+5)
	for key, value := range e.Extra {
		out[key] = value
	}
	if e.Type != "" {
		out["type"] = e.Type
	}
	if e.Percent != nil {
		out["percent"] = *e.Percent
	}
	if e.Stage != "" {
		out["stage"] = e.Stage
	}
	if e.Detail != "" {
		out["detail"] = e.Detail
	}
	if e.Content != "" {
		out["content"] = e.Content
	}
	return json.Marshal(out)
}

func decodeString(fields map[string]json.RawMessage, key string, target *string) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		*target = value
	}
}
