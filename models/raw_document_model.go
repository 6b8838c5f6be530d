package models

import "time"

// RawDocument is an uploaded PDF and the text extracted from it.
type RawDocument struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Filename      string    `gorm:"size:255;not null" json:"filename"`
	FilePath      string    `gorm:"size:512;not null" json:"file_path"`
	FileURL       *string   `gorm:"size:512" json:"file_url,omitempty"`
	ExtractedText string    `gorm:"type:text" json:"extracted_text"`
	PageCount     int       `json:"page_count"`
	UploadedByID  uint      `gorm:"not null;index" json:"uploaded_by_id"`
	UploadedAt    time.Time `json:"uploaded_at"`

	UploadedBy User       `gorm:"foreignKey:UploadedByID" json:"-"`
	Questions  []Question `gorm:"foreignKey:RawDocumentID;constraint:OnDelete:CASCADE" json:"-"`
}
