package routes

import (
	"github.com/aicert/cert_platform/handlers"
	"github.com/aicert/cert_platform/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(h.Settings.JWTSecret), middleware.AdminRequired())

	admin.Post("/upload-pdf-for-ocr", h.UploadPDFForOCR)
	admin.Delete("/ocr-documents/:documentId", h.DeleteDocument)
	admin.Delete("/questions/:questionId", h.DeleteQuestion)
	admin.Post("/certifications", h.CreateCertification)

	users := admin.Group("/users")
	users.Get("", h.GetAllUsers)
	users.Post("/reset-password", h.AdminResetUserPassword)
}
