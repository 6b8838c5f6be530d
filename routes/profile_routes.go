package routes

import (
	"github.com/aicert/cert_platform/handlers"
	"github.com/aicert/cert_platform/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	me := api.Group("/users/me", middleware.Protected(h.Settings.JWTSecret))
	me.Get("", h.GetMe)
	me.Put("", h.UpdateMe)
	me.Delete("", h.DeleteMe)
	me.Post("/profile-picture", h.UploadProfilePicture)

	profile := me.Group("/profile")
	profile.Get("", h.GetProfile)
	profile.Put("", h.UpdateProfile)
	profile.Get("/stats", h.GetProfileStats)
}
