package handlers

import (
	"errors"
	"strconv"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/middleware"
	"github.com/aicert/cert_platform/models"
	"github.com/aicert/cert_platform/notifications"
	"github.com/aicert/cert_platform/services"
	"github.com/aicert/cert_platform/storage"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var validate = validator.New()

// Handler carries everything the HTTP endpoints need.
type Handler struct {
	DB       *gorm.DB
	Settings config.Settings

	Ingestion    *services.IngestionService
	Documents    *services.DocumentService
	Answers      *services.AnswerService
	Stats        *services.StatsService
	Explanations *services.ExplanationService
	Generator    *services.GenerationService
	Exporter     *services.ExportService

	// Pictures holds profile pictures; its files are served under /profile_pictures.
	Pictures storage.FileStore
	Mailer   notifications.Mailer
	Log      logger.Logger
}

func (h *Handler) currentUser(c *fiber.Ctx) (models.User, error) {
	var user models.User
	id := middleware.UserID(c)
	if id == 0 {
		return user, gorm.ErrRecordNotFound
	}
	err := h.DB.WithContext(c.UserContext()).First(&user, id).Error
	return user, err
}

func (h *Handler) userNotFound(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}
	h.Log.Error("🔥 Failed to load user: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
}

// serviceError maps the services error taxonomy onto HTTP statuses.
func (h *Handler) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInputRejected), errors.Is(err, services.ErrExtractionEmpty):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrInferenceUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	default:
		h.Log.Error("🔥 %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func invalidParam(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid " + name})
}
