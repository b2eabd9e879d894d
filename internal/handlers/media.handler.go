package handlers

import (
	"fmt"
	"praid/internal/app"
	"praid/internal/clients"
	"praid/internal/services"

	"github.com/gofiber/fiber/v2"
)

type MediaHandler struct {
	Handler
	media *services.MediaService
}

func NewMediaHandler(app app.App, router fiber.Router) *MediaHandler {
	return &MediaHandler{
		Handler: newHandler(app, router, "media_handler"),
		media:   app.Services.Media,
	}
}

func (h *MediaHandler) Register() {
	h.router.Get("/images/:id", h.image)
	h.router.Get("/documents/:id", h.document)
	h.router.Get("/documents/:id/source", h.documentSource)
}

func (h *MediaHandler) image(c *fiber.Ctx) error {
	asset, err := h.media.Image(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendError(c, err, "Failed to load image")
	}
	return sendAsset(c, asset)
}

func (h *MediaHandler) document(c *fiber.Ctx) error {
	asset, err := h.media.Document(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendError(c, err, "Failed to load document")
	}
	return sendAsset(c, asset)
}

func (h *MediaHandler) documentSource(c *fiber.Ctx) error {
	url, err := h.media.DocumentURL(c.Params("id"))
	if err != nil {
		return sendError(c, err, "Failed to locate document")
	}
	return c.JSON(fiber.Map{"url": url})
}

func sendAsset(c *fiber.Ctx, asset *clients.Asset) error {
	c.Set(fiber.HeaderContentType, asset.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", asset.Filename))
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.Send(asset.Data)
}
