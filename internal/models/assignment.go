package models

import (
	"time"

	"gorm.io/gorm"
)

type Assignment struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid"`
	CourseID    string     `json:"course_id" gorm:"not null;index;type:uuid"`
	ClassID     *string    `json:"class_id" gorm:"index;type:uuid"`
	Title       string     `json:"title" gorm:"not null;size:200"`
	Description *string    `json:"description" gorm:"type:text"`
	DueAt       *time.Time `json:"due_at" gorm:"index"`
	MaxGrade    float64    `json:"max_grade" gorm:"not null;default:10"`
	CreatedBy   string     `json:"created_by" gorm:"size:255"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Resources []AssignmentResource `json:"resources,omitempty" gorm:"foreignKey:AssignmentID"`
}

func (Assignment) TableName() string {
	return "assignments"
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	a.ID = ensureID(a.ID)
	if a.MaxGrade == 0 {
		a.MaxGrade = 10
	}
	return nil
}

type AssignmentResource struct {
	ID           string       `json:"id" gorm:"primaryKey;type:uuid"`
	AssignmentID string       `json:"assignment_id" gorm:"not null;index;type:uuid"`
	Title        string       `json:"title" gorm:"not null;size:200"`
	Kind         ResourceKind `json:"kind" gorm:"not null;size:20"`
	URL          string       `json:"url" gorm:"not null;size:1000"`
	StoragePath  *string      `json:"storage_path,omitempty" gorm:"size:500"`
	CreatedBy    string       `json:"created_by" gorm:"size:255"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (AssignmentResource) TableName() string {
	return "assignment_resources"
}

func (r *AssignmentResource) BeforeCreate(tx *gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}

// AssignmentSubmission holds one student's work and grade for one assignment.
// A row may exist with only a grade when the teacher graded before any submission.
type AssignmentSubmission struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid"`
	AssignmentID string     `json:"assignment_id" gorm:"not null;index;type:uuid"`
	StudentEmail string     `json:"student_email" gorm:"not null;index;size:255"`
	Content      *string    `json:"content" gorm:"type:text"`
	FileURL      *string    `json:"file_url" gorm:"size:1000"`
	StoragePath  *string    `json:"storage_path,omitempty" gorm:"size:500"`
	Grade        *float64   `json:"grade"`
	Feedback     *string    `json:"feedback" gorm:"type:text"`
	GradedBy     *string    `json:"graded_by" gorm:"size:255"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}

func (s *AssignmentSubmission) BeforeCreate(tx *gorm.DB) error {
	s.ID = ensureID(s.ID)
	s.StudentEmail = NormalizeEmail(s.StudentEmail)
	return nil
}

func (s *AssignmentSubmission) IsGraded() bool {
	return s.Grade != nil
}
