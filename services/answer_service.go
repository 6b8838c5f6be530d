package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aicert/cert_platform/models"
	"gorm.io/gorm"
)

type AnswerResult struct {
	IsCorrect       bool   `json:"is_correct"`
	Message         string `json:"message"`
	CorrectOptionID *uint  `json:"correct_option_id"`
}

type AnswerService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAnswerService(db *gorm.DB) *AnswerService {
	return &AnswerService{db: db, now: time.Now}
}

// Submit records one answer and updates the user's progress on the question.
func (s *AnswerService) Submit(ctx context.Context, userID, questionID, optionID uint) (AnswerResult, error) {
	var result AnswerResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Preload("Options").First(&q, questionID).Error; err != nil {
			return notFound(err, "question %d", questionID)
		}

		var selected *models.Option
		for i := range q.Options {
			if q.Options[i].ID == optionID {
				selected = &q.Options[i]
			}
			if q.Options[i].IsCorrect && result.CorrectOptionID == nil {
				id := q.Options[i].ID
				result.CorrectOptionID = &id
			}
		}
		if selected == nil {
			return fmt.Errorf("option %d on question %d: %w", optionID, questionID, ErrNotFound)
		}
		result.IsCorrect = selected.IsCorrect

		now := s.now().UTC()
		answer := models.UserAnswer{
			UserID:           userID,
			QuestionID:       questionID,
			SelectedOptionID: optionID,
			IsCorrect:        selected.IsCorrect,
			AnsweredAt:       now,
		}
		if err := tx.Create(&answer).Error; err != nil {
			return err
		}

		var progress models.UserProgress
		err := tx.Where("user_id = ? AND question_id = ?", userID, questionID).First(&progress).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			progress = models.UserProgress{
				UserID:        userID,
				QuestionID:    questionID,
				IsCorrect:     selected.IsCorrect,
				AttemptCount:  1,
				LastAttemptAt: now,
			}
			return tx.Create(&progress).Error
		case err != nil:
			return err
		}
		progress.AttemptCount++
		progress.IsCorrect = selected.IsCorrect
		progress.LastAttemptAt = now
		return tx.Save(&progress).Error
	})
	if err != nil {
		return AnswerResult{}, err
	}

	if result.IsCorrect {
		result.Message = "Correct!"
	} else {
		result.Message = "Incorrect. Try again."
	}
	return result, nil
}
