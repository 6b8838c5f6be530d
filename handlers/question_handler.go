package handlers

import (
	"errors"

	"github.com/aicert/cert_platform/middleware"
	"github.com/aicert/cert_platform/models"
	"github.com/aicert/cert_platform/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SubmitAnswerRequest struct {
	QuestionID       uint `json:"question_id" validate:"required"`
	SelectedOptionID uint `json:"selected_option_id" validate:"required"`
}

type GenerateProblemsRequest struct {
	Text     string                      `json:"text" validate:"required"`
	Settings services.GenerationSettings `json:"settings"`
}

type CreateCertificationRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
}

func (h *Handler) ListQuestions(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	questions, err := h.Documents.ListQuestions(c.UserContext(), skip, limit)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(questions)
}

func (h *Handler) ExplainQuestion(c *fiber.Ctx) error {
	id, ok := paramID(c, "questionId")
	if !ok {
		return invalidParam(c, "questionId")
	}
	explanation, err := h.Explanations.Explain(c.UserContext(), id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(explanation)
}

func (h *Handler) SubmitAnswer(c *fiber.Ctx) error {
	var req SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.Answers.Submit(c.UserContext(), middleware.UserID(c), req.QuestionID, req.SelectedOptionID)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(result)
}

func (h *Handler) GenerateProblems(c *fiber.Ctx) error {
	var req GenerateProblemsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	problems, err := h.Generator.Generate(c.UserContext(), middleware.UserID(c), req.Text, req.Settings)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"problems": problems,
		"message":  "Problems generated successfully.",
	})
}

func (h *Handler) ListCertifications(c *fiber.Ctx) error {
	var certs []models.Certification
	if err := h.DB.WithContext(c.UserContext()).Order("name").Find(&certs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve certifications"})
	}
	return c.JSON(certs)
}

func (h *Handler) CreateCertification(c *fiber.Ctx) error {
	var req CreateCertificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	db := h.DB.WithContext(c.UserContext())
	var existing models.Certification
	err := db.Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Certification already exists"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create certification"})
	}

	cert := models.Certification{Name: req.Name, Description: req.Description}
	if err := db.Create(&cert).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create certification"})
	}
	return c.Status(fiber.StatusCreated).JSON(cert)
}
