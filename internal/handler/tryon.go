package handler

import (
	"context"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/tryonlab/api/internal/apperr"
	"github.com/tryonlab/api/internal/model"
	"github.com/tryonlab/api/internal/service"
	"github.com/tryonlab/api/pkg/response"
)

// HeaderProgressChannel selects the websocket channel that receives job events
const HeaderProgressChannel = "X-Progress-Channel"

// Options shared by the job handlers
type Options struct {
	// RequestTimeout bounds one try-on request end to end.
	RequestTimeout time.Duration
	// ExposeDiagnostics includes captured process output and upstream
	// errors in failure bodies.
	ExposeDiagnostics bool
}

type TryOnHandler struct {
	service   *service.TryOnService
	validator *validator.Validate
	opts      Options
}

func NewTryOnHandler(svc *service.TryOnService, v *validator.Validate, opts Options) *TryOnHandler {
	return &TryOnHandler{
		service:   svc,
		validator: v,
		opts:      opts,
	}
}

// Process handles POST /api/process-tryon
// @Summary      2D virtual try-on
// @Description  Composite a garment onto a person photo with the remote prediction model
// @Tags         TryOn
// @Accept       multipart/form-data
// @Produce      json
// @Param        personImage        formData file   true  "Photo of the person"
// @Param        clothingImage      formData file   true  "Photo of the garment"
// @Param        garmentDescription formData string true  "Short garment description"
// @Param        X-Progress-Channel header   string false "Websocket channel for progress events"
// @Success      200 {object} model.TryOnResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Failure      504 {object} response.ErrorResponse
// @Router       /api/process-tryon [post]
func (h *TryOnHandler) Process(c *fiber.Ctx) error {
	form := model.TryOnForm{
		PersonImage:        formFile(c, "personImage"),
		ClothingImage:      formFile(c, "clothingImage"),
		GarmentDescription: c.FormValue("garmentDescription"),
	}
	if err := h.validator.Struct(&form); err != nil {
		return response.ValidationError(c, "Missing required fields")
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	_, outcome, err := h.service.TryOn(ctx, &service.TryOnRequest{
		Person:      form.PersonImage,
		Garment:     form.ClothingImage,
		Description: form.GarmentDescription,
		Channel:     c.Get(HeaderProgressChannel),
	})
	if err != nil {
		return response.AppError(c, err, h.opts.ExposeDiagnostics)
	}

	return response.OK(c, model.TryOnResponse{Result: outcome.Result})
}

func (h *TryOnHandler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return withRequestTimeout(c, h.opts.RequestTimeout)
}

func withRequestTimeout(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), timeout)
}

// formFile returns the named part, or nil when absent or empty.
func formFile(c *fiber.Ctx, name string) *multipart.FileHeader {
	fh, err := c.FormFile(name)
	if err != nil || fh == nil || fh.Size == 0 {
		return nil
	}
	return fh
}

func formatValidationErrors(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ""
	}
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, e.Field()+": "+e.Tag())
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}

// invalid is the 400 reply for a rejected JSON body.
func invalid(c *fiber.Ctx, err error) error {
	e := apperr.InvalidField("Validation failed").WithDetails(formatValidationErrors(err))
	return response.AppError(c, e, true)
}
