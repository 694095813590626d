package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tryonlab/api/internal/model"
	"github.com/tryonlab/api/internal/service"
	"github.com/tryonlab/api/pkg/response"
)

const msgReconstructSucceeded = "3D model generated successfully"

type ReconstructHandler struct {
	service   *service.TryOnService
	validator *validator.Validate
	opts      Options
}

func NewReconstructHandler(svc *service.TryOnService, v *validator.Validate, opts Options) *ReconstructHandler {
	return &ReconstructHandler{
		service:   svc,
		validator: v,
		opts:      opts,
	}
}

// ThreeD handles POST /api/3d-tryon
// @Summary      3D reconstruction
// @Description  Reconstruct a 3D mesh of the person with the local PIFuHD process
// @Tags         Reconstruct
// @Accept       multipart/form-data
// @Produce      json
// @Param        person             formData file   true  "Photo of the person"
// @Param        cloth              formData file   false "Photo of the garment (stored, not used by the reconstruction)"
// @Param        X-Progress-Channel header   string false "Websocket channel for progress events"
// @Success      200 {object} model.ReconstructResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Failure      504 {object} response.ErrorResponse
// @Router       /api/3d-tryon [post]
func (h *ReconstructHandler) ThreeD(c *fiber.Ctx) error {
	form := model.ReconstructForm{
		Person: formFile(c, "person"),
		Cloth:  formFile(c, "cloth"),
	}
	if err := h.validator.Struct(&form); err != nil {
		return response.ValidationError(c, "Missing person image")
	}

	outcome, err := h.reconstruct(c, &form)
	if err != nil {
		return response.AppError(c, err, h.opts.ExposeDiagnostics)
	}

	return response.OK(c, model.ReconstructResponse{
		Models:       outcome.Models,
		HasMaterials: outcome.HasMaterials,
		Message:      msgReconstructSucceeded,
	})
}

// PIFuHD handles POST /api/pifuhd
// @Summary      Legacy 3D reconstruction
// @Description  Single-image reconstruction returning only the mesh URL
// @Tags         Reconstruct
// @Accept       multipart/form-data
// @Produce      json
// @Param        image formData file true "Photo of the person"
// @Success      200 {object} model.PIFuHDResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      405 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/pifuhd [post]
func (h *ReconstructHandler) PIFuHD(c *fiber.Ctx) error {
	form := model.ReconstructForm{Person: formFile(c, "image")}
	if err := h.validator.Struct(&form); err != nil {
		return response.ValidationError(c, "No image file uploaded")
	}

	outcome, err := h.reconstruct(c, &form)
	if err != nil {
		return response.AppError(c, err, h.opts.ExposeDiagnostics)
	}

	return response.OK(c, model.PIFuHDResponse{ObjURL: outcome.Models[0]})
}

// MethodNotAllowed answers any non-POST request on the legacy route.
func (h *ReconstructHandler) MethodNotAllowed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderAllow, fiber.MethodPost)
	return response.MethodNotAllowed(c)
}

func (h *ReconstructHandler) reconstruct(c *fiber.Ctx, form *model.ReconstructForm) (*model.Outcome, error) {
	ctx, cancel := withRequestTimeout(c, h.opts.RequestTimeout)
	defer cancel()

	_, outcome, err := h.service.Reconstruct(ctx, &service.ReconstructRequest{
		Person:  form.Person,
		Cloth:   form.Cloth,
		Channel: c.Get(HeaderProgressChannel),
	})
	return outcome, err
}
