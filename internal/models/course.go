package models

import (
	"time"

	"gorm.io/gorm"
)

type CourseStatus string

const (
	CourseDraft    CourseStatus = "Borrador"
	CourseTesting  CourseStatus = "En Prueba"
	CourseActive   CourseStatus = "Activo"
	CourseFinished CourseStatus = "Finalizado"
)

// CourseStatusTransitions lists the statuses reachable from each status
var CourseStatusTransitions = map[CourseStatus][]CourseStatus{
	CourseDraft:    {CourseTesting, CourseActive},
	CourseTesting:  {CourseDraft, CourseActive},
	CourseActive:   {CourseFinished},
	CourseFinished: {CourseActive},
}

func (s CourseStatus) Valid() bool {
	_, ok := CourseStatusTransitions[s]
	return ok
}

type Course struct {
	ID            string       `json:"id" gorm:"primaryKey;type:uuid"`
	InstitutionID string       `json:"institution_id" gorm:"not null;index;type:uuid"`
	Name          string       `json:"name" gorm:"not null;size:200"`
	Description   *string      `json:"description" gorm:"type:text"`
	Status        CourseStatus `json:"status" gorm:"not null;size:20;default:Borrador;index"`
	HasClasses    bool         `json:"has_classes" gorm:"not null"`
	HasSprints    bool         `json:"has_sprints" gorm:"not null"`
	HasTeams      bool         `json:"has_teams" gorm:"not null"`
	StartDate     *time.Time   `json:"start_date"`
	EndDate       *time.Time   `json:"end_date"`
	CreatedBy     string       `json:"created_by" gorm:"size:255"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	// Relations
	Institution *Institution `json:"institution,omitempty" gorm:"foreignKey:InstitutionID"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	c.ID = ensureID(c.ID)
	if c.Status == "" {
		c.Status = CourseDraft
	}
	return nil
}

// CourseEnrollment is the membership row that grants course-scoped roles.
// TeamID is only meaningful for courses with teams.
type CourseEnrollment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	CourseID  string    `json:"course_id" gorm:"not null;index;type:uuid"`
	Email     string    `json:"email" gorm:"not null;index;size:255"`
	FullName  *string   `json:"full_name" gorm:"size:200"`
	Role      string    `json:"role" gorm:"not null;size:30"`
	TeamID    *string   `json:"team_id" gorm:"index;type:uuid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CourseEnrollment) TableName() string {
	return "course_enrollments"
}

func (e *CourseEnrollment) BeforeCreate(tx *gorm.DB) error {
	e.ID = ensureID(e.ID)
	e.Email = NormalizeEmail(e.Email)
	return nil
}
