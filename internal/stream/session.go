package stream

import (
	"context"
	"io"
	"praid/internal/logger"
	"sync"
)

// Session drives one ingestion stream to exactly one outcome. The first complete or
// error record settles it; anything after that is logged and ignored.
//
// A Session may be fed transfer progress from one goroutine while another runs the
// body; all tracker access goes through its lock.
type Session struct {
	mu         sync.Mutex
	tracker    *Tracker
	processing bool
	settled    bool
	result     *Result
	err        error
	opts       []DecoderOption
	log        logger.Logger
}

func NewSession(scheme Scheme, opts ...DecoderOption) *Session {
	return &Session{
		tracker: NewTracker(scheme),
		opts:    opts,
		log:     logger.New("stream").File("session"),
	}
}

// Tracker exposes the accumulated state. Only read it once the session has settled.
func (s *Session) Tracker() *Tracker {
	return s.tracker
}

func (s *Session) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Outcome is the settled result or error. Before settling both are nil.
func (s *Session) Outcome() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Transfer records upload progress. Once the producer has reported anything the
// transfer phase is over and further calls report false.
func (s *Session) Transfer(sent, total int64) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled || s.processing {
		return Update{}, false
	}
	return s.tracker.Transfer(sent, total), true
}

// Handle applies one event. It reports false when the event changed nothing visible:
// unknown types and everything after the terminal record.
func (s *Session) Handle(event Event) (Update, bool) {
	log := s.log.Function("Handle")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled {
		if event.IsTerminal() {
			log.Warn("Ignoring terminal event after stream settled", "type", event.Type)
		} else {
			log.Debug("Ignoring event after stream settled", "type", event.Type)
		}
		return Update{}, false
	}

	switch event.Type {
	case TypeProgress:
		s.processing = true
		return s.tracker.Progress(event), true

	case TypeComplete:
		result := event.Result()
		s.result = &result
		s.settled = true
		return s.tracker.Complete(), true

	case TypeError:
		detail := event.Detail
		if detail == "" {
			detail = GenericErrorDetail
		}
		s.err = &ApplicationError{Detail: detail}
		s.settled = true
		return s.tracker.Snapshot(), true

	default:
		log.Debug("Ignoring unknown event type", "type", event.Type)
		return Update{}, false
	}
}

// Fail settles the session with err unless it already settled.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled {
		return
	}
	s.err = err
	s.settled = true
}

// Run reads body until the session settles or the body ends, handing every visible
// update to onUpdate in arrival order.
func (s *Session) Run(ctx context.Context, body io.Reader, onUpdate func(Update)) (*Result, error) {
	log := s.log.TraceFromContext(ctx).Function("Run")

	for event, err := range Events(body, s.opts...) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			s.Fail(&TransportError{Err: err})
			break
		}

		update, changed := s.Handle(event)
		if changed && onUpdate != nil {
			onUpdate(update)
		}
		if s.Settled() {
			break
		}
	}

	if !s.Settled() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.Fail(&TransportError{Err: ctxErr})
		} else {
			s.Fail(ErrNoTerminalEvent)
		}
	}

	result, err := s.Outcome()
	if err != nil {
		return nil, log.Err("Stream failed", err, "scheme", s.tracker.Scheme().String())
	}
	return result, nil
}
