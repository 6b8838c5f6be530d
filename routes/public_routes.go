package routes

import (
	"github.com/aicert/cert_platform/handlers"
	"github.com/aicert/cert_platform/middleware"
	"github.com/aicert/cert_platform/websocket"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App, h *handlers.Handler, hub *websocket.Hub) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to AI Cert Platform API",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	if h.Pictures != nil {
		app.Static("/profile_pictures", h.Pictures.Root())
	}

	ws := app.Group("/ws", websocket.UpgradeRequired)
	ws.Get("/ingestion", middleware.ProtectedQuery(h.Settings.JWTSecret), hub.Handler())
}

// Register wires every route group onto app.
func Register(app *fiber.App, h *handlers.Handler, hub *websocket.Hub) {
	PublicRoutes(app, h, hub)
	AuthRoutes(app, h)
	ProfileRoutes(app, h)
	QuestionRoutes(app, h)
	DocumentRoutes(app, h)
	AdminRoutes(app, h)
}
