package models

import (
	"encoding/json"
	"time"
)

type UserProfile struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	RealName             *string   `gorm:"size:100" json:"real_name"`
	Phone                *string   `gorm:"size:20" json:"phone"`
	AgeGroup             *string   `gorm:"size:20" json:"age_group"`
	EducationLevel       *string   `gorm:"size:50" json:"education_level"`
	TargetCertifications string    `gorm:"type:text" json:"-"`
	Bio                  *string   `gorm:"type:text" json:"bio"`
	DailyGoal            int       `gorm:"default:5" json:"daily_goal"`
	StudyTimeGoal        string    `gorm:"size:10;default:'1h'" json:"study_time_goal"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Targets decodes the stored certification list. A malformed column reads as empty.
func (p UserProfile) Targets() []string {
	var out []string
	if p.TargetCertifications == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(p.TargetCertifications), &out); err != nil {
		return []string{}
	}
	return out
}

func (p *UserProfile) SetTargets(targets []string) {
	if targets == nil {
		targets = []string{}
	}
	b, _ := json.Marshal(targets)
	p.TargetCertifications = string(b)
}
