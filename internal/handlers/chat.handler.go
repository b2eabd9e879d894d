package handlers

import (
	"context"
	"praid/internal/app"
	"praid/internal/services"
	"praid/internal/types"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	Handler
	chat *services.ChatService
}

func NewChatHandler(app app.App, router fiber.Router) *ChatHandler {
	return &ChatHandler{
		Handler: newHandler(app, router, "chat_handler"),
		chat:    app.Services.Chat,
	}
}

func (h *ChatHandler) Register() {
	chat := h.router.Group("/chat")
	chat.Post("", h.ask)

	sessions := chat.Group("/sessions")
	sessions.Get("", h.listSessions)
	sessions.Get("/:id", h.getSession)
	sessions.Delete("/:id", h.deleteSession)
}

// ask streams answer chunks as they arrive, then the stored answer.
func (h *ChatHandler) ask(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("ask")

	var req types.AskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return badRequest(c, services.ErrEmptyQuery.Error())
	}

	return streamEvents(c, log, func(ctx context.Context, stream *eventStream) {
		answer, err := h.chat.Ask(ctx, req, func(chunk string) {
			stream.send(fiber.Map{"type": "chunk", "content": chunk})
		})
		if err != nil {
			stream.sendError(err, "Chat failed")
			return
		}
		stream.send(fiber.Map{"type": "complete", "answer": answer})
	})
}

func (h *ChatHandler) listSessions(c *fiber.Ctx) error {
	sessions, err := h.chat.Sessions(c.UserContext())
	if err != nil {
		return sendError(c, err, "Failed to list chat sessions")
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *ChatHandler) getSession(c *fiber.Ctx) error {
	session, err := h.chat.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendError(c, err, "Failed to get chat session")
	}
	return c.JSON(session)
}

func (h *ChatHandler) deleteSession(c *fiber.Ctx) error {
	if err := h.chat.DeleteSession(c.UserContext(), c.Params("id")); err != nil {
		return sendError(c, err, "Failed to delete chat session")
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}
