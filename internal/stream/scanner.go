package stream

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// Scanner pulls events from a streaming body one at a time.
//
//	scanner := stream.NewScanner(resp.Body)
//	for scanner.Next() {
//		handle(scanner.Event())
//	}
//	if err := scanner.Err(); err != nil { ... }
type Scanner struct {
	reader  *bufio.Reader
	decoder *Decoder
	queue   []Event
	current Event
	err     error
	done    bool
}

func NewScanner(r io.Reader, opts ...DecoderOption) *Scanner {
	return &Scanner{
		reader:  bufio.NewReader(r),
		decoder: NewDecoder(opts...),
	}
}

// Next advances to the next event. It returns false at end of body or on a read error;
// events decoded before the error are still delivered first.
func (s *Scanner) Next() bool {
	for len(s.queue) == 0 {
		if s.done {
			return false
		}

		chunk, err := s.reader.ReadString('\n')
		if chunk != "" {
			s.queue = append(s.queue, s.decoder.FeedDelta(chunk)...)
		}
		if err != nil {
			s.done = true
			s.queue = append(s.queue, s.decoder.Flush()...)
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
		}
	}

	s.current = s.queue[0]
	s.queue = s.queue[1:]
	return true
}

func (s *Scanner) Event() Event {
	return s.current
}

func (s *Scanner) Err() error {
	return s.err
}

// Skipped counts malformed data lines dropped so far.
func (s *Scanner) Skipped() int {
	return s.decoder.Skipped()
}

// Events yields each decoded event of r in order. A read error is yielded once, last,
// with a zero Event.
func Events(r io.Reader, opts ...DecoderOption) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		scanner := NewScanner(r, opts...)
		for scanner.Next() {
			if !yield(scanner.Event(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Event{}, err)
		}
	}
}
