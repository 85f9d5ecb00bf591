package models

import (
	"time"

	"gorm.io/gorm"
)

type Sprint struct {
	ID        string     `json:"id" gorm:"primaryKey;type:uuid"`
	CourseID  string     `json:"course_id" gorm:"not null;index;type:uuid"`
	Name      string     `json:"name" gorm:"not null;size:120"`
	Goal      *string    `json:"goal" gorm:"type:text"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Sprint) TableName() string {
	return "sprints"
}

func (s *Sprint) BeforeCreate(tx *gorm.DB) error {
	s.ID = ensureID(s.ID)
	return nil
}

// SprintReview is the teacher's evaluation of one team for one sprint
type SprintReview struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	SprintID   string    `json:"sprint_id" gorm:"not null;index;type:uuid"`
	TeamID     string    `json:"team_id" gorm:"not null;index;type:uuid"`
	Feedback   string    `json:"feedback" gorm:"type:text"`
	Grade      *float64  `json:"grade"`
	ReviewedBy string    `json:"reviewed_by" gorm:"size:255"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SprintReview) TableName() string {
	return "sprint_reviews"
}

func (r *SprintReview) BeforeCreate(tx *gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}
