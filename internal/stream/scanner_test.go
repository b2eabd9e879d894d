package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_YieldsEventsInOrder(t *testing.T) {
	readers := map[string]io.Reader{
		"whole":    strings.NewReader(sampleBody),
		"one byte": iotest.OneByteReader(strings.NewReader(sampleBody)),
		"half":     iotest.HalfReader(strings.NewReader(sampleBody)),
	}
	want := NewDecoder().Feed(sampleBody)

	for name, reader := range readers {
		t.Run(name, func(t *testing.T) {
			scanner := NewScanner(reader)
			var got []Event
			for scanner.Next() {
				got = append(got, scanner.Event())
			}

			require.NoError(t, scanner.Err())
			assert.Equal(t, want, got)
		})
	}
}

func TestScanner_ParsesLastLineWithoutNewline(t *testing.T) {
	scanner := NewScanner(strings.NewReader("data: {\"type\": \"complete\", \"document_id\": \"abc123\"}"))

	require.True(t, scanner.Next())
	assert.Equal(t, TypeComplete, scanner.Event().Type)
	assert.False(t, scanner.Next())
	assert.NoError(t, scanner.Err())
}

func TestScanner_DeliversEventsBeforeReadError(t *testing.T) {
	readErr := errors.New("connection reset")
	body := io.MultiReader(
		strings.NewReader("data: {\"type\": \"progress\", \"percent\": 10}\n\n"),
		iotest.ErrReader(readErr),
	)

	scanner := NewScanner(body)
	require.True(t, scanner.Next())
	assert.Equal(t, 10.0, *scanner.Event().Percent)
	assert.False(t, scanner.Next())
	assert.ErrorIs(t, scanner.Err(), readErr)
}

func TestScanner_CountsSkippedLines(t *testing.T) {
	scanner := NewScanner(strings.NewReader("data: nope\n\ndata: {\"type\": \"progress\"}\n\n"))

	for scanner.Next() {
	}
	assert.Equal(t, 1, scanner.Skipped())
}

func TestEvents_StopsWhenConsumerBreaks(t *testing.T) {
	count := 0
	for event, err := range Events(strings.NewReader(sampleBody)) {
		require.NoError(t, err)
		count++
		if event.Type == TypeProgress {
			break
		}
	}
	assert.Equal(t, 1, count)
}

func TestEvents_YieldsReadErrorLast(t *testing.T) {
	readErr := errors.New("broken pipe")
	body := io.MultiReader(strings.NewReader(sampleBody), iotest.ErrReader(readErr))

	var events int
	var lastErr error
	for _, err := range Events(body) {
		if err != nil {
			lastErr = err
			continue
		}
		events++
	}

	assert.Equal(t, 4, events)
	assert.ErrorIs(t, lastErr, readErr)
}
