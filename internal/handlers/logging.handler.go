package handlers

import (
	"praid/internal/app"
	"praid/internal/services"
	"praid/internal/types"

	"github.com/gofiber/fiber/v2"
)

type LoggingHandler struct {
	Handler
	logging *services.LoggingService
}

func NewLoggingHandler(app app.App, router fiber.Router) *LoggingHandler {
	return &LoggingHandler{
		Handler: newHandler(app, router, "logging_handler"),
		logging: app.Services.Logging,
	}
}

func (h *LoggingHandler) Register() {
	h.router.Post("/logs", h.handleLogBatch)
}

func (h *LoggingHandler) handleLogBatch(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("handleLogBatch")

	var req types.LogBatchRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("Failed to parse log batch request", "error", err)
		return badRequest(c, "Invalid request body")
	}

	response, err := h.logging.ProcessLogBatch(c.UserContext(), req)
	if err != nil {
		return sendError(c, err, "Failed to process logs")
	}
	return c.JSON(response)
}
