package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExtractionKind string

const (
	ExtractResources   ExtractionKind = "resources"
	ExtractAssignments ExtractionKind = "assignments"
	ExtractStudents    ExtractionKind = "students"
	ExtractNameMatches ExtractionKind = "name_matches"
)

// ExtractionRun records one structured extraction produced by the language model
type ExtractionRun struct {
	ID          string         `json:"id" gorm:"primaryKey;type:uuid"`
	CourseID    string         `json:"course_id" gorm:"not null;index;type:uuid"`
	Kind        ExtractionKind `json:"kind" gorm:"not null;size:30"`
	RequestedBy string         `json:"requested_by" gorm:"size:255"`
	Model       string         `json:"model" gorm:"size:100"`
	Result      datatypes.JSON `json:"result" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (ExtractionRun) TableName() string {
	return "extraction_runs"
}

func (r *ExtractionRun) BeforeCreate(tx *gorm.DB) error {
	r.ID = ensureID(r.ID)
	return nil
}

// AllModels lists every table managed by the service, in dependency order
func AllModels() []any {
	return []any{
		&Profile{},
		&WhitelistEntry{},
		&Institution{},
		&InstitutionRole{},
		&Course{},
		&Team{},
		&CourseEnrollment{},
		&TeamMessage{},
		&Class{},
		&ClassResource{},
		&Sprint{},
		&SprintReview{},
		&Assignment{},
		&AssignmentResource{},
		&AssignmentSubmission{},
		&CourseQuery{},
		&QueryResponse{},
		&ExtractionRun{},
	}
}
