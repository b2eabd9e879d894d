package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"praid/internal/clients"
	"praid/internal/logger"
	"praid/internal/repositories"
	"praid/internal/services"
	"praid/internal/types"

	"github.com/gofiber/fiber/v2"
)

// errorStatus maps service errors to the status the browser sees.
func errorStatus(err error) int {
	var httpErr *clients.HTTPError
	switch {
	case errors.Is(err, services.ErrEmptyQuery),
		errors.Is(err, services.ErrInvalidResultCount),
		errors.Is(err, services.ErrEmptyID),
		errors.Is(err, services.ErrInvalidUploadID),
		errors.Is(err, services.ErrInvalidSessionID),
		errors.Is(err, types.ErrInvalidKind),
		errors.Is(err, types.ErrNotAnImage),
		errors.Is(err, types.ErrNotAPDF),
		errors.Is(err, services.ErrMissingLogSession),
		errors.Is(err, services.ErrLogBatchTooLarge):
		return fiber.StatusBadRequest
	case errors.Is(err, repositories.ErrUploadNotFound),
		errors.Is(err, repositories.ErrChatSessionNotFound),
		errors.Is(err, clients.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &httpErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// errorMessage hides internal failures; client mistakes and platform details are shown.
func errorMessage(err error, status int, fallback string) string {
	var httpErr *clients.HTTPError
	switch {
	case status == fiber.StatusBadRequest || status == fiber.StatusNotFound:
		return err.Error()
	case errors.As(err, &httpErr):
		if detail := httpErr.Detail(); detail != "" {
			return fmt.Sprintf("%s: %s", httpErr.Service, detail)
		}
		return fmt.Sprintf("%s returned HTTP %d", httpErr.Service, httpErr.StatusCode)
	default:
		return fallback
	}
}

func sendError(c *fiber.Ctx, err error, fallback string) error {
	status := errorStatus(err)
	return c.Status(status).JSON(fiber.Map{
		"error": errorMessage(err, status, fallback),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// eventStream writes server-sent event records. The first failed write marks the
// browser as gone and cancels the operation feeding the stream.
type eventStream struct {
	w      *bufio.Writer
	cancel context.CancelFunc
	log    logger.Logger
	closed bool
}

func (s *eventStream) send(record any) {
	if s.closed {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		s.log.Er("failed to encode stream record", err)
		return
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err == nil {
		err = s.w.Flush()
	}
	if err != nil {
		s.log.Warn("Client went away, cancelling stream", "error", err)
		s.closed = true
		s.cancel()
	}
}

func (s *eventStream) sendError(err error, fallback string) {
	status := errorStatus(err)
	detail := errorMessage(err, status, fallback)
	if status == fiber.StatusInternalServerError {
		detail = err.Error()
	}
	s.send(fiber.Map{"type": "error", "detail": detail})
}

// streamEvents answers with text/event-stream and runs produce once the headers are
// out. produce gets a context cancelled when the browser disconnects.
func streamEvents(c *fiber.Ctx, log logger.Logger, produce func(ctx context.Context, stream *eventStream)) error {
	ctx, cancel := context.WithCancel(c.UserContext())

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		produce(ctx, &eventStream{w: w, cancel: cancel, log: log})
	})
	return nil
}
