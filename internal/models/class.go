package models

import (
	"time"

	"gorm.io/gorm"
)

type ResourceKind string

const (
	ResourceLink     ResourceKind = "link"
	ResourceFile     ResourceKind = "file"
	ResourceVideo    ResourceKind = "video"
	ResourceDocument ResourceKind = "document"
)

type Class struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	CourseID    string     `json:"course_id" gorm:"not null;index;type:uuid"`
	Title       string     `json:"title" gorm:"not null;size:200"`
	Description *string    `json:"description" gorm:"type:text"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Position    int        `json:"position" gorm:"not null;default:0"`
	CreatedBy   string     `json:"created_by" gorm:"size:255"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Resources []ClassResource `json:"resources,omitempty" gorm:"foreignKey:ClassID"`
}

func (Class) TableName() string {
	return "classes"
}

func (c *Class) BeforeCreate(tx *gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

// ClassResource is a link or an uploaded file attached to a class.
// StoragePath is set only for files held in the class-resources bucket.
type ClassResource struct {
	ID          string       `json:"id" gorm:"primaryKey;type:uuid"`
	ClassID     string       `json:"class_id" gorm:"not null;index;type:uuid"`
	Title       string       `json:"title" gorm:"not null;size:200"`
	Kind        ResourceKind `json:"kind" gorm:"not null;size:20"`
	URL         string       `json:"url" gorm:"not null;size:1000"`
	StoragePath *string      `json:"storage_path,omitempty" gorm:"size:500"`
	CreatedBy   string       `json:"created_by" gorm:"size:255"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (ClassResource) TableName() string {
	return "class_resources"
}

func (r *ClassResource) BeforeCreate(tx *gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}
