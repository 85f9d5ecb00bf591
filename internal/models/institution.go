package models

import (
	"time"

	"gorm.io/gorm"
)

type Institution struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string    `json:"name" gorm:"not null;size:200;index"`
	Description *string   `json:"description" gorm:"type:text"`
	LogoURL     *string   `json:"logo_url" gorm:"size:500"`
	CreatedBy   string    `json:"created_by" gorm:"size:255"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Computed fields (not stored)
	CourseCount int64 `json:"course_count,omitempty" gorm:"-"`
}

func (Institution) TableName() string {
	return "institutions"
}

func (i *Institution) BeforeCreate(tx *gorm.DB) error {
	i.ID = ensureID(i.ID)
	return nil
}

// InstitutionRole binds an email to a role inside one institution
type InstitutionRole struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid"`
	InstitutionID string    `json:"institution_id" gorm:"not null;index;type:uuid"`
	Email         string    `json:"email" gorm:"not null;index;size:255"`
	Role          string    `json:"role" gorm:"not null;size:50"`
	CreatedAt     time.Time `json:"created_at"`
}

func (InstitutionRole) TableName() string {
	return "institution_roles"
}

func (r *InstitutionRole) BeforeCreate(tx *gorm.DB) error {
	r.ID = ensureID(r.ID)
	r.Email = NormalizeEmail(r.Email)
	return nil
}
