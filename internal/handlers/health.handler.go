package handlers

import (
	"praid/internal/app"
	"praid/internal/services"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	Handler
	app    app.App
	health *services.HealthService
}

func NewHealthHandler(app app.App, router fiber.Router) *HealthHandler {
	return &HealthHandler{
		Handler: newHandler(app, router, "health_handler"),
		app:     app,
		health:  app.Services.Health,
	}
}

func (h *HealthHandler) Register() {
	h.router.Get("/health", h.consoleHealth)

	services := h.router.Group("/services/health")
	services.Get("", h.serviceHealth)
	services.Post("/refresh", h.refresh)
}

func (h *HealthHandler) consoleHealth(c *fiber.Ctx) error {
	clients := 0
	if h.app.Websocket != nil {
		clients = h.app.Websocket.ClientCount()
	}
	return c.JSON(fiber.Map{
		"status":           "ok",
		"version":          h.app.Config.GeneralVersion,
		"service":          "praid_console",
		"websocketClients": clients,
	})
}

func (h *HealthHandler) serviceHealth(c *fiber.Ctx) error {
	snapshot, err := h.health.Snapshot(c.UserContext())
	if err != nil {
		return sendError(c, err, "Failed to check service health")
	}
	return c.JSON(snapshot)
}

func (h *HealthHandler) refresh(c *fiber.Ctx) error {
	snapshot, err := h.health.Refresh(c.UserContext())
	if err != nil {
		return sendError(c, err, "Failed to check service health")
	}
	return c.JSON(snapshot)
}
