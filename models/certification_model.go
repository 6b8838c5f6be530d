package models

type Certification struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}
