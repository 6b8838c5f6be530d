package handlers

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aicert/cert_platform/middleware"
	"github.com/aicert/cert_platform/models"
	"github.com/aicert/cert_platform/storage"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const maxProfilePictureBytes = 5 * 1024 * 1024

var allowedPictureExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

type UpdateUserRequest struct {
	Email           *string `json:"email" validate:"omitempty,email"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password" validate:"omitempty,min=4"`
}

type UpdateProfileRequest struct {
	RealName             *string   `json:"real_name" validate:"omitempty,max=100"`
	Phone                *string   `json:"phone" validate:"omitempty,max=20"`
	AgeGroup             *string   `json:"age_group" validate:"omitempty,max=20"`
	EducationLevel       *string   `json:"education_level" validate:"omitempty,max=50"`
	TargetCertifications *[]string `json:"target_certifications"`
	Bio                  *string   `json:"bio"`
	DailyGoal            *int      `json:"daily_goal"`
	StudyTimeGoal        *string   `json:"study_time_goal" validate:"omitempty,max=10"`
}

type ProfileResponse struct {
	models.UserProfile
	TargetCertifications []string `json:"target_certifications"`
}

func toProfileResponse(p models.UserProfile) ProfileResponse {
	return ProfileResponse{UserProfile: p, TargetCertifications: p.Targets()}
}

func (h *Handler) GetMe(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return h.userNotFound(c, err)
	}
	return c.JSON(toUserResponse(user))
}

func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return h.userNotFound(c, err)
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	db := h.DB.WithContext(c.UserContext())
	if req.Email != nil && *req.Email != user.Email {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", *req.Email, user.ID).Count(&count).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
		}
		if count > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email already in use"})
		}
		user.Email = *req.Email
	}

	if req.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)) != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Current password is incorrect"})
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to hash password"})
		}
		user.Password = string(hashed)
	}

	if err := db.Model(&user).Select("email", "password").Updates(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
	}
	return c.JSON(toUserResponse(user))
}

// DeleteMe removes a student account with its answers, progress, generated
// problems and profile. Admin accounts cannot delete themselves.
func (h *Handler) DeleteMe(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return h.userNotFound(c, err)
	}
	if user.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin accounts cannot be deleted"})
	}

	err = h.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.UserAnswer{}, &models.UserProgress{}, &models.GeneratedProblem{}, &models.UserProfile{}} {
			if err := tx.Where("user_id = ?", user.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		h.Log.Error("🔥 Failed to delete user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete account"})
	}

	if user.ProfilePictureURL != nil {
		h.removePicture(c, *user.ProfilePictureURL)
	}
	return c.JSON(fiber.Map{"message": "Your account has been deleted."})
}

func (h *Handler) UploadProfilePicture(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return h.userNotFound(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file uploaded"})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedPictureExtensions[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "File type not allowed"})
	}
	if fh.Size > maxProfilePictureBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "File exceeds 5MB"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read upload"})
	}
	defer f.Close()

	obj, err := h.Pictures.Save(c.UserContext(), storage.UniqueKey("avatar"+ext), f)
	if err != nil {
		h.Log.Error("🔥 Failed to save profile picture for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save file"})
	}

	var previous string
	if user.ProfilePictureURL != nil {
		previous = *user.ProfilePictureURL
	}
	url := "/profile_pictures/" + filepath.Base(obj.Path)
	if err := h.DB.WithContext(c.UserContext()).Model(&user).Update("profile_picture_url", url).Error; err != nil {
		h.Pictures.Delete(c.UserContext(), obj.Path)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
	}
	h.removePicture(c, previous)

	return c.JSON(fiber.Map{"message": "Profile picture uploaded.", "url": url})
}

func (h *Handler) removePicture(c *fiber.Ctx, url string) {
	if url == "" {
		return
	}
	p := filepath.Join(h.Pictures.Root(), path.Base(url))
	if err := h.Pictures.Delete(c.UserContext(), p); err != nil {
		h.Log.Warn("Could not remove profile picture %s: %v", p, err)
	}
}

func (h *Handler) loadProfile(c *fiber.Ctx, userID uint) (models.UserProfile, error) {
	var profile models.UserProfile
	err := h.DB.WithContext(c.UserContext()).
		Where(models.UserProfile{UserID: userID}).
		Attrs(models.UserProfile{DailyGoal: 5, StudyTimeGoal: "1h"}).
		FirstOrCreate(&profile).Error
	return profile, err
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	profile, err := h.loadProfile(c, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}
	return c.JSON(toProfileResponse(profile))
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.DailyGoal != nil && (*req.DailyGoal < 1 || *req.DailyGoal > 500) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "daily_goal must be between 1 and 500"})
	}

	profile, err := h.loadProfile(c, middleware.UserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	if req.RealName != nil {
		profile.RealName = req.RealName
	}
	if req.Phone != nil {
		profile.Phone = req.Phone
	}
	if req.AgeGroup != nil {
		profile.AgeGroup = req.AgeGroup
	}
	if req.EducationLevel != nil {
		profile.EducationLevel = req.EducationLevel
	}
	if req.TargetCertifications != nil {
		profile.SetTargets(*req.TargetCertifications)
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.DailyGoal != nil {
		profile.DailyGoal = *req.DailyGoal
	}
	if req.StudyTimeGoal != nil {
		profile.StudyTimeGoal = *req.StudyTimeGoal
	}
	profile.UpdatedAt = time.Now()

	if err := h.DB.WithContext(c.UserContext()).Save(&profile).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(toProfileResponse(profile))
}

func (h *Handler) GetProfileStats(c *fiber.Ctx) error {
	user, err := h.currentUser(c)
	if err != nil {
		return h.userNotFound(c, err)
	}
	stats, err := h.Stats.ForUser(c.UserContext(), user)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(stats)
}
