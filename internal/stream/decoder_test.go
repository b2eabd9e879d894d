package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = "data: {\"type\": \"progress\", \"percent\": 10, \"stage\": \"Extracting text\"}\n\n" +
	"data: {\"type\": \"progress\", \"percent\": 40, \"stage\": \"CAPTION_CHUNK:A red \"}\n\n" +
	"data: {\"type\": \"progress\", \"percent\": 45, \"stage\": \"CAPTION_CHUNK:bicycle\"}\n\n" +
	": keepalive\n\n" +
	"data: {\"type\": \"complete\", \"image_id\": \"img-7\", \"caption\": \"A red bicycle\"}\n\n"

func feedCumulative(d *Decoder, text string, chunk int) []Event {
	var events []Event
	for end := chunk; ; end += chunk {
		if end > len(text) {
			end = len(text)
		}
		events = append(events, d.Feed(text[:end])...)
		if end == len(text) {
			break
		}
	}
	return append(events, d.Flush()...)
}

func TestDecoder_Feed_WholeBody(t *testing.T) {
	events := NewDecoder().Feed(sampleBody)

	require.Len(t, events, 4)
	assert.Equal(t, TypeProgress, events[0].Type)
	require.NotNil(t, events[0].Percent)
	assert.Equal(t, 10.0, *events[0].Percent)
	assert.Equal(t, "Extracting text", events[0].Stage)
	assert.Equal(t, "CAPTION_CHUNK:bicycle", events[2].Stage)
	assert.Equal(t, TypeComplete, events[3].Type)
	assert.Equal(t, "img-7", events[3].Result().ID())
}

func TestDecoder_Feed_ChunkingDoesNotChangeEvents(t *testing.T) {
	want := NewDecoder().Feed(sampleBody)

	for _, chunk := range []int{1, 2, 3, 7, 16, 50, 101, len(sampleBody)} {
		d := NewDecoder()
		got := feedCumulative(d, sampleBody, chunk)
		assert.Equal(t, want, got, "chunk size %d", chunk)
		assert.Equal(t, len(sampleBody), d.Seen())
		assert.Zero(t, d.Skipped(), "chunk size %d", chunk)
	}
}

func TestDecoder_Feed_LineAlignedDeliveriesMatchReferenceMode(t *testing.T) {
	want := NewDecoder().Feed(sampleBody)

	d := NewDecoder(WithoutLineBuffering())
	var got []Event
	full := ""
	for _, record := range strings.SplitAfter(sampleBody, "\n\n") {
		full += record
		got = append(got, d.Feed(full)...)
	}

	assert.Equal(t, want, got)
}

func TestDecoder_WithoutLineBuffering_DropsSplitRecord(t *testing.T) {
	d := NewDecoder(WithoutLineBuffering())

	first := "data: {\"type\": \"progress\", \"percent\": 10}\n\ndata: {\"type\": \"prog"
	events := d.Feed(first)
	require.Len(t, events, 1)
	assert.Equal(t, 1, d.Skipped())

	second := first + "ress\", \"percent\": 20}\n\n"
	events = d.Feed(second)
	assert.Empty(t, events)

	buffered := NewDecoder()
	events = append(buffered.Feed(first), buffered.Feed(second)...)
	require.Len(t, events, 2)
	assert.Equal(t, 20.0, *events[1].Percent)
}

func TestDecoder_MalformedLineIsSkipped(t *testing.T) {
	d := NewDecoder()
	body := "data: {\"type\": \"progress\", \"percent\": 10}\n\n" +
		"data: {not json}\n\n" +
		"data: {\"type\": \"progress\", \"percent\": 20}\n\n"

	events := d.Feed(body)

	require.Len(t, events, 2)
	assert.Equal(t, 10.0, *events[0].Percent)
	assert.Equal(t, 20.0, *events[1].Percent)
	assert.Equal(t, 1, d.Skipped())
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	body := "event: progress\n" +
		"id: 4\n" +
		": comment\n" +
		"data:{\"type\": \"progress\"}\n" +
		"\n" +
		"data: {\"type\": \"error\", \"detail\": \"boom\"}\r\n"

	events := NewDecoder().Feed(body)

	require.Len(t, events, 1)
	assert.Equal(t, TypeError, events[0].Type)
	assert.Equal(t, "boom", events[0].Detail)
}

func TestDecoder_FlushParsesUnterminatedLastLine(t *testing.T) {
	d := NewDecoder()

	events := d.Feed("data: {\"type\": \"complete\", \"document_id\": \"abc123\"}")
	assert.Empty(t, events)

	events = d.Flush()
	require.Len(t, events, 1)
	assert.Equal(t, "abc123", events[0].Result().DocumentID)
	assert.Empty(t, d.Flush())
}

func TestDecoder_FeedResetsWhenTextShrinks(t *testing.T) {
	d := NewDecoder()
	d.Feed("data: {\"type\": \"progress\", \"percent\": 10}\n")

	events := d.Feed("data: {\"type\": \"progress\", \"percent\": 5}\n")
	require.Len(t, events, 1)
	assert.Equal(t, 5.0, *events[0].Percent)
}

func TestDecoder_FeedDelta(t *testing.T) {
	d := NewDecoder()
	var events []Event
	for _, part := range []string{"data: {\"type\":", " \"progress\", \"percent\": 1", "}\n\n"} {
		events = append(events, d.FeedDelta(part)...)
	}

	require.Len(t, events, 1)
	assert.Equal(t, 1.0, *events[0].Percent)
	assert.Equal(t, 42, d.Seen())
}
