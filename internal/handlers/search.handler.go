package handlers

import (
	"praid/internal/app"
	"praid/internal/services"
	"praid/internal/types"

	"github.com/gofiber/fiber/v2"
)

type SearchHandler struct {
	Handler
	search *services.SearchService
}

func NewSearchHandler(app app.App, router fiber.Router) *SearchHandler {
	return &SearchHandler{
		Handler: newHandler(app, router, "search_handler"),
		search:  app.Services.Search,
	}
}

func (h *SearchHandler) Register() {
	search := h.router.Group("/search")
	search.Post("", h.query)
	search.Get("/context", h.context)
	search.Delete("/:id", h.delete)
}

func (h *SearchHandler) query(c *fiber.Ctx) error {
	var req types.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	searchContext, err := h.search.Search(c.UserContext(), req)
	if err != nil {
		return sendError(c, err, "Search failed")
	}
	return c.JSON(searchContext)
}

func (h *SearchHandler) context(c *fiber.Ctx) error {
	searchContext, err := h.search.Context(c.UserContext())
	if err != nil {
		return sendError(c, err, "Failed to read search context")
	}
	if searchContext == nil {
		return c.JSON(types.SearchContext{Results: []types.SearchResult{}})
	}
	return c.JSON(searchContext)
}

func (h *SearchHandler) delete(c *fiber.Ctx) error {
	response, err := h.search.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendError(c, err, "Failed to delete item")
	}
	return c.JSON(fiber.Map{"deleted": c.Params("id"), "response": response})
}
