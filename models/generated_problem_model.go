package models

import "time"

// GeneratedProblem is a practice problem the model wrote for one user.
type GeneratedProblem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	QuestionText  string    `gorm:"type:text;not null" json:"question"`
	QuestionType  string    `gorm:"size:50;not null" json:"type"`
	Difficulty    string    `gorm:"size:20;not null" json:"difficulty"`
	Choices       string    `gorm:"type:text" json:"-"`
	CorrectAnswer string    `gorm:"type:text" json:"correct_answer"`
	Explanation   string    `gorm:"type:text" json:"explanation"`
	Topic         string    `gorm:"size:255" json:"topic"`
	Points        int       `gorm:"default:1" json:"points"`
	EstimatedTime int       `gorm:"default:2" json:"estimated_time"`
	CreatedAt     time.Time `json:"created_at"`
}
