package models

import (
	"time"

	"gorm.io/gorm"
)

type Team struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	CourseID    string    `json:"course_id" gorm:"not null;index;type:uuid"`
	Name        string    `json:"name" gorm:"not null;size:120"`
	Description *string   `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Members []CourseEnrollment `json:"members,omitempty" gorm:"foreignKey:TeamID"`
}

func (Team) TableName() string {
	return "teams"
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	t.ID = ensureID(t.ID)
	return nil
}

type TeamMessage struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	TeamID      string    `json:"team_id" gorm:"not null;index;type:uuid"`
	AuthorEmail string    `json:"author_email" gorm:"not null;size:255"`
	Body        string    `json:"body" gorm:"not null;type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (TeamMessage) TableName() string {
	return "team_messages"
}

func (m *TeamMessage) BeforeCreate(tx *gorm.DB) error {
	m.ID = ensureID(m.ID)
	m.AuthorEmail = NormalizeEmail(m.AuthorEmail)
	return nil
}
