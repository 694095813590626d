package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
)

// ContentSecurityPolicy allows the viewer scripts from unpkg and result
// images from the Replicate CDN.
const ContentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-eval' 'unsafe-inline' https://unpkg.com; " +
	"connect-src 'self' https://*.replicate.delivery https://*.replicate.com https://*.v.network; " +
	"img-src 'self' blob: data:; " +
	"style-src 'self' 'unsafe-inline'; " +
	"worker-src 'self' blob:;"

// SecurityHeaders sets the standard hardening headers and the CSP.
func SecurityHeaders() fiber.Handler {
	return helmet.New(helmet.Config{
		ContentSecurityPolicy:     ContentSecurityPolicy,
		CrossOriginEmbedderPolicy: "unsafe-none",
		CrossOriginResourcePolicy: "cross-origin",
	})
}
