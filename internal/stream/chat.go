package stream

import (
	"context"
	"io"
	"praid/internal/logger"
	"strings"
)

// CollectChat reads an assistant answer streamed as content records, passing each
// fragment to onFragment as it arrives. A complete record or the end of the body after
// at least one fragment finishes the answer; an empty body is ErrNoTerminalEvent.
func CollectChat(ctx context.Context, body io.Reader, onFragment func(string)) (string, error) {
	log := logger.NewWithContext(ctx, "stream").File("chat").Function("CollectChat")

	var answer strings.Builder
	fragments := 0

	for event, err := range Events(body) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return answer.String(), log.Err("Chat stream interrupted", &TransportError{Err: err},
				"fragments", fragments)
		}

		switch event.Type {
		case TypeError:
			detail := event.Detail
			if detail == "" {
				detail = GenericErrorDetail
			}
			return answer.String(), log.Err("Chat stream reported an error", &ApplicationError{Detail: detail})
		case TypeComplete:
			return answer.String(), nil
		}

		if event.Content == "" {
			continue
		}
		fragments++
		answer.WriteString(event.Content)
		if onFragment != nil {
			onFragment(event.Content)
		}
	}

	if fragments == 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", log.Err("Chat stream cancelled", &TransportError{Err: ctxErr})
		}
		return "", log.Err("Chat stream ended without content", ErrNoTerminalEvent)
	}
	return answer.String(), nil
}
