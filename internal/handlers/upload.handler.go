package handlers

import (
	"context"
	"fmt"
	"praid/internal/app"
	"praid/internal/services"
	"praid/internal/types"

	"github.com/gofiber/fiber/v2"
)

type UploadHandler struct {
	Handler
	uploads  *services.UploadService
	render   *services.RenderService
	maxBytes int64
}

func NewUploadHandler(app app.App, router fiber.Router) *UploadHandler {
	return &UploadHandler{
		Handler:  newHandler(app, router, "upload_handler"),
		uploads:  app.Services.Upload,
		render:   app.Services.Render,
		maxBytes: int64(app.Config.UploadMaxBytes),
	}
}

func (h *UploadHandler) Register() {
	uploads := h.router.Group("/uploads")
	uploads.Get("", h.list)
	uploads.Get("/:id", h.get)
	uploads.Delete("/:id", h.delete)
	uploads.Post("/:kind", h.upload)
}

// upload answers with a stream of progress records followed by one complete or
// error record.
func (h *UploadHandler) upload(c *fiber.Ctx) error {
	log := h.log.TraceFromContext(c.UserContext()).Function("upload")

	kind, err := types.ParseUploadKind(c.Params("kind"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "A file is required in the file field")
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("File exceeds the %d byte limit", h.maxBytes),
		})
	}

	file := types.UploadFile{
		Name:        header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
	}
	if err := kind.ValidateFile(file.Name, file.ContentType); err != nil {
		return badRequest(c, err.Error())
	}

	content, err := header.Open()
	if err != nil {
		return sendError(c, log.Err("failed to open uploaded file", err), "Failed to read upload")
	}

	return streamEvents(c, log, func(ctx context.Context, stream *eventStream) {
		defer content.Close()

		upload, err := h.uploads.Upload(ctx, kind, file, content, func(update services.UploadProgress) {
			stream.send(fiber.Map{"type": "progress", "progress": update})
		})
		if err != nil {
			stream.sendError(err, "Upload failed")
			if upload != nil {
				stream.send(fiber.Map{"type": "upload", "upload": upload})
			}
			return
		}
		stream.send(fiber.Map{"type": "complete", "upload": upload})
	})
}

func (h *UploadHandler) list(c *fiber.Ctx) error {
	uploads, err := h.uploads.List(c.UserContext())
	if err != nil {
		return sendError(c, err, "Failed to list uploads")
	}
	return c.JSON(fiber.Map{"uploads": uploads})
}

func (h *UploadHandler) get(c *fiber.Ctx) error {
	upload, err := h.uploads.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendError(c, err, "Failed to get upload")
	}

	result, err := upload.ParsedResult()
	if err != nil {
		h.log.Function("get").Warn("Stored result is unreadable", "uploadID", upload.ID, "error", err)
	}

	response := fiber.Map{"upload": upload}
	if result != nil {
		response["fields"] = result.Fields()
		if result.StructuredJSON != "" && h.render != nil {
			html, err := h.render.StructuredHTML(result.StructuredJSON)
			if err != nil {
				h.log.Function("get").Warn("Failed to render structured result", "uploadID", upload.ID, "error", err)
			} else {
				response["structuredHtml"] = html
			}
		}
	}
	return c.JSON(response)
}

func (h *UploadHandler) delete(c *fiber.Ctx) error {
	if err := h.uploads.Delete(c.UserContext(), c.Params("id")); err != nil {
		return sendError(c, err, "Failed to delete upload")
	}
	return c.Status(fiber.StatusNoContent).Send(nil)
}
