package handlers

import (
	"praid/internal/app"
	"praid/internal/handlers/middleware"
	"praid/internal/logger"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func newHandler(app app.App, router fiber.Router, file string) Handler {
	return Handler{
		middleware: app.Middleware,
		log:        logger.New("handlers").File(file),
		router:     router,
	}
}

func Router(router fiber.Router, app *app.App) (err error) {
	setupWebSocketRoute(router, app)

	api := router.Group("/api", app.Middleware.TraceID())
	NewHealthHandler(*app, api).Register()
	NewUploadHandler(*app, api).Register()
	NewSearchHandler(*app, api).Register()
	NewChatHandler(*app, api).Register()
	NewMediaHandler(*app, api).Register()
	NewLoggingHandler(*app, api).Register()

	return nil
}

// IsEventStream reports whether the request is answered with server-sent events,
// which must not pass through response compression.
func IsEventStream(c *fiber.Ctx) bool {
	if c.Method() != fiber.MethodPost {
		return false
	}
	path := c.Path()
	return strings.HasPrefix(path, "/api/uploads/") || path == "/api/chat"
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}
