// Package server assembles the Fiber application shared by the binary and
// the end-to-end tests.
package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/gofiber/swagger"
	"github.com/rs/zerolog"

	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/handler"
	"github.com/tryonlab/api/internal/metrics"
	"github.com/tryonlab/api/internal/middleware"
	ws "github.com/tryonlab/api/internal/websocket"
	"github.com/tryonlab/api/pkg/response"
)

// Deps are the constructed collaborators the routes are bound to
type Deps struct {
	TryOn       *handler.TryOnHandler
	Reconstruct *handler.ReconstructHandler
	History     *handler.HistoryHandler
	Health      *handler.HealthHandler
	RateLimiter *middleware.RateLimiter
	Hub         *ws.Hub
	Metrics     *metrics.Collector
	Logger      zerolog.Logger
}

// New builds the Fiber app with every route registered.
func New(cfg *config.Config, d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Logger))
	app.Use(middleware.RequestMetrics(d.Metrics))
	app.Use(middleware.SecurityHeaders())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept," + handler.HeaderClientID + "," + handler.HeaderProgressChannel,
		ExposeHeaders: response.HeaderErrorCode,
	}))

	app.Get("/", d.Health.Root)
	app.Get("/health", d.Health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	// Generated meshes
	app.Static(cfg.Storage.ModelsBasePath, cfg.Storage.ModelsDir, fiber.Static{
		Browse: false,
	})

	api := app.Group("/api")

	api.Post("/process-tryon", d.RateLimiter.TryOnLimit(cfg.RateLimit.TryOnPerHour), d.TryOn.Process)

	reconstructLimit := d.RateLimiter.ReconstructLimit(cfg.RateLimit.ReconstructPerHour)
	api.Post("/3d-tryon", reconstructLimit, d.Reconstruct.ThreeD)
	api.Post("/pifuhd", reconstructLimit, d.Reconstruct.PIFuHD)
	api.All("/pifuhd", d.Reconstruct.MethodNotAllowed)

	history := api.Group("/history")
	history.Get("/", d.History.List)
	history.Post("/", d.History.Add)
	history.Delete("/", d.History.Clear)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:channel", websocket.New(func(c *websocket.Conn) {
		d.Hub.HandleConnection(c, c.Params("channel"))
	}))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	switch code {
	case fiber.StatusNotFound:
		return response.NotFound(c, message)
	case fiber.StatusInternalServerError:
		return response.ServiceError(c, message)
	}
	return response.Error(c, code, response.CodeServiceError, message, "")
}
