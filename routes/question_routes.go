package routes

import (
	"github.com/aicert/cert_platform/handlers"
	"github.com/aicert/cert_platform/middleware"
	"github.com/gofiber/fiber/v2"
)

func QuestionRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api/v1")
	protected := middleware.Protected(h.Settings.JWTSecret)

	questions := api.Group("/questions", protected)
	questions.Get("", h.ListQuestions)
	questions.Post("/:questionId/explain", h.ExplainQuestion)

	problems := api.Group("/problems", protected)
	problems.Post("/submit-answer", h.SubmitAnswer)
	problems.Post("/generate", h.GenerateProblems)

	api.Get("/certifications", h.ListCertifications)
}
