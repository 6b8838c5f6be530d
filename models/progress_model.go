package models

import "time"

type UserAnswer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	QuestionID       uint      `gorm:"not null;index" json:"question_id"`
	SelectedOptionID uint      `gorm:"not null" json:"selected_option_id"`
	IsCorrect        bool      `json:"is_correct"`
	AnsweredAt       time.Time `gorm:"index" json:"answered_at"`
}

type UserProgress struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_progress_user_question" json:"user_id"`
	QuestionID    uint      `gorm:"not null;uniqueIndex:idx_progress_user_question" json:"question_id"`
	IsCorrect     bool      `json:"is_correct"`
	AttemptCount  int       `gorm:"default:0" json:"attempt_count"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}
