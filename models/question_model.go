package models

import "time"

const QuestionTypeMultipleChoice = "multiple_choice"

type Question struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	QuestionText    string    `gorm:"type:text;not null" json:"question_text"`
	QuestionType    string    `gorm:"size:50;not null;default:'multiple_choice'" json:"question_type"`
	Difficulty      *int      `json:"difficulty,omitempty"`
	CertificationID *uint     `gorm:"index" json:"certification_id,omitempty"`
	RawDocumentID   *uint     `gorm:"index" json:"raw_document_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	Options []Option `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options"`
}

type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	OptionText string `gorm:"type:text;not null" json:"option_text"`
	IsCorrect  bool   `gorm:"default:false" json:"is_correct"`
}
