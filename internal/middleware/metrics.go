package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tryonlab/api/internal/metrics"
)

// RequestMetrics counts served requests by matched route.
func RequestMetrics(collector *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}
		collector.RecordRequest(c.Method(), c.Route().Path, status)

		return err
	}
}
