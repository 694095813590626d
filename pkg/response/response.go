package response

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tryonlab/api/internal/apperr"
)

// HeaderErrorCode carries the machine-readable error kind
const HeaderErrorCode = "X-Error-Code"

// Error codes not covered by apperr kinds
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeServiceError     = "SERVICE_ERROR"
)

// ErrorResponse is the failure body of every endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func Error(c *fiber.Ctx, status int, code, message, details string) error {
	c.Set(HeaderErrorCode, code)
	return c.Status(status).JSON(ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// AppError writes err using its kind's status. Diagnostics are dropped
// unless exposeDetails is set.
func AppError(c *fiber.Ctx, err error, exposeDetails bool) error {
	e := apperr.From(err)
	details := ""
	if exposeDetails {
		details = e.Details
	}
	return Error(c, e.Kind.Status(), string(e.Kind), e.Message, details)
}

func ValidationError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, string(apperr.KindMissingField), message, "")
}

func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, CodeNotFound, message, "")
}

func MethodNotAllowed(c *fiber.Ctx) error {
	return Error(c, fiber.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", "")
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, string(apperr.KindRateLimited), "Rate limit exceeded", "")
}

func ServiceError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, CodeServiceError, message, "")
}

func OK(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
