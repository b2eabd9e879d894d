package stream

import (
	"encoding/json"
	"praid/internal/logger"
	"strings"
)

const DataPrefix = "data: "

// Decoder is the push-style decoder. Callers hand it the full text received so far;
// it remembers how much it has already consumed and decodes only the new portion.
type Decoder struct {
	seen          int
	pending       string
	bufferPartial bool
	skipped       int
	log           logger.Logger
}

type DecoderOption func(*Decoder)

// WithoutLineBuffering parses a trailing fragment as soon as it arrives and drops it
// when it does not parse, instead of holding it for the next delivery.
func WithoutLineBuffering() DecoderOption {
	return func(d *Decoder) {
		d.bufferPartial = false
	}
}

func WithLogger(log logger.Logger) DecoderOption {
	return func(d *Decoder) {
		d.log = log
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		bufferPartial: true,
		log:           logger.New("stream").File("decoder"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed decodes the text appended since the previous call. A shorter text than already
// seen means the body was restarted, so decoding starts over.
func (d *Decoder) Feed(full string) []Event {
	if len(full) < d.seen {
		d.log.Function("Feed").Warn("Response text shrank, resetting decoder",
			"seen", d.seen, "length", len(full))
		d.seen = 0
		d.pending = ""
	}

	delta := full[d.seen:]
	d.seen = len(full)
	return d.decode(delta)
}

// FeedDelta decodes a chunk that follows the previous one directly.
func (d *Decoder) FeedDelta(delta string) []Event {
	d.seen += len(delta)
	return d.decode(delta)
}

// Flush decodes a held trailing line once the body has ended.
func (d *Decoder) Flush() []Event {
	if d.pending == "" {
		return nil
	}
	line := d.pending
	d.pending = ""
	if event, ok := d.parseLine(line); ok {
		return []Event{event}
	}
	return nil
}

// Seen is the length of text consumed so far.
func (d *Decoder) Seen() int {
	return d.seen
}

// Skipped counts data lines that failed to parse.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func (d *Decoder) decode(delta string) []Event {
	if delta == "" {
		return nil
	}

	text := d.pending + delta
	d.pending = ""

	lines := strings.Split(text, "\n")
	if d.bufferPartial {
		d.pending = lines[len(lines)-1]
		lines = lines[:len(lines)-1]
	}

	var events []Event
	for _, line := range lines {
		if event, ok := d.parseLine(line); ok {
			events = append(events, event)
		}
	}
	return events
}

func (d *Decoder) parseLine(line string) (Event, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, DataPrefix) {
		return Event{}, false
	}

	payload := strings.TrimPrefix(line, DataPrefix)
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		d.skipped++
		d.log.Function("parseLine").Warn("Skipping malformed stream record",
			"error", err, "line", excerpt(payload, 120))
		return Event{}, false
	}
	return event, true
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
