package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tryonlab/api/internal/model"
	"github.com/tryonlab/api/internal/service"
	"github.com/tryonlab/api/pkg/response"
)

// HeaderClientID identifies the browser whose history is addressed
const HeaderClientID = "X-Client-Id"

const maxClientIDLength = 128

type HistoryHandler struct {
	service   *service.HistoryService
	validator *validator.Validate
}

func NewHistoryHandler(svc *service.HistoryService, v *validator.Validate) *HistoryHandler {
	return &HistoryHandler{
		service:   svc,
		validator: v,
	}
}

// List handles GET /api/history
// @Summary      List try-on history
// @Tags         History
// @Produce      json
// @Param        X-Client-Id header string true "Client identifier"
// @Success      200 {object} model.HistoryResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/history [get]
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	clientID, ok := clientID(c)
	if !ok {
		return response.ValidationError(c, "Missing client id")
	}

	items, err := h.service.List(c.UserContext(), clientID)
	if err != nil {
		return response.AppError(c, err, false)
	}

	return response.OK(c, model.HistoryResponse{Items: items})
}

// Add handles POST /api/history
// @Summary      Remember a try-on result
// @Tags         History
// @Accept       json
// @Produce      json
// @Param        X-Client-Id header string             true "Client identifier"
// @Param        request     body   model.HistoryEntry true "History entry"
// @Success      201 {object} model.HistoryEntry
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/history [post]
func (h *HistoryHandler) Add(c *fiber.Ctx) error {
	clientID, ok := clientID(c)
	if !ok {
		return response.ValidationError(c, "Missing client id")
	}

	var req model.HistoryEntry
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body")
	}
	if err := h.validator.Struct(&req); err != nil {
		return invalid(c, err)
	}

	saved, err := h.service.Add(c.UserContext(), clientID, req)
	if err != nil {
		return response.AppError(c, err, false)
	}

	return response.Created(c, saved)
}

// Clear handles DELETE /api/history
// @Summary      Clear try-on history
// @Tags         History
// @Param        X-Client-Id header string true "Client identifier"
// @Success      204
// @Failure      400 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/history [delete]
func (h *HistoryHandler) Clear(c *fiber.Ctx) error {
	clientID, ok := clientID(c)
	if !ok {
		return response.ValidationError(c, "Missing client id")
	}

	if err := h.service.Clear(c.UserContext(), clientID); err != nil {
		return response.AppError(c, err, false)
	}

	return response.NoContent(c)
}

func clientID(c *fiber.Ctx) (string, bool) {
	id := c.Get(HeaderClientID)
	if id == "" || len(id) > maxClientIDLength {
		return "", false
	}
	return id, true
}
