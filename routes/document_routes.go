package routes

import (
	"github.com/aicert/cert_platform/handlers"
	"github.com/aicert/cert_platform/middleware"
	"github.com/gofiber/fiber/v2"
)

func DocumentRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")
	protected := middleware.Protected(h.Settings.JWTSecret)

	docs := api.Group("/ocr-documents", protected)
	docs.Get("", h.ListDocuments)
	docs.Get("/:documentId", h.GetDocument)
	docs.Get("/:documentId/questions", h.GetDocumentQuestions)
	docs.Get("/:documentId/export", h.ExportDocument)

	pdfs := api.Group("/pdfs", protected)
	pdfs.Post("", h.UploadPDF)
	pdfs.Post("/:documentId/extract-text", h.ExtractText)
}
