package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request. Debug level adds query and
// selected request headers.
func RequestLogger(l zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		ev := l.Info()
		if status >= fiber.StatusInternalServerError {
			ev = l.Error()
		}
		ev = ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP())
		if l.GetLevel() <= zerolog.DebugLevel {
			ev = ev.Str("query", string(c.Request().URI().QueryString())).
				Str("progress_channel", c.Get("X-Progress-Channel")).
				Str("error_code", string(c.Response().Header.Peek("X-Error-Code")))
		}
		ev.Msg("request")

		return err
	}
}
