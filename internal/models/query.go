package models

import (
	"time"

	"gorm.io/gorm"
)

// CourseQuery is a question thread opened inside a course
type CourseQuery struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	CourseID       string    `json:"course_id" gorm:"not null;index;type:uuid"`
	ClassID        *string   `json:"class_id" gorm:"index;type:uuid"`
	AssignmentID   *string   `json:"assignment_id" gorm:"index;type:uuid"`
	AuthorEmail    string    `json:"author_email" gorm:"not null;index;size:255"`
	Title          string    `json:"title" gorm:"not null;size:200"`
	Body           string    `json:"body" gorm:"not null;type:text"`
	Resolved       bool      `json:"resolved" gorm:"not null;index"`
	ResponseCount  int       `json:"response_count" gorm:"not null;default:0"`
	LastActivityAt time.Time `json:"last_activity_at" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (CourseQuery) TableName() string {
	return "course_queries"
}

func (q *CourseQuery) BeforeCreate(tx *gorm.DB) error {
	q.ID = ensureID(q.ID)
	q.AuthorEmail = NormalizeEmail(q.AuthorEmail)
	if q.LastActivityAt.IsZero() {
		q.LastActivityAt = time.Now()
	}
	return nil
}

type QueryResponse struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	QueryID     string    `json:"query_id" gorm:"not null;index;type:uuid"`
	AuthorEmail string    `json:"author_email" gorm:"not null;size:255"`
	Body        string    `json:"body" gorm:"not null;type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (QueryResponse) TableName() string {
	return "query_responses"
}

func (r *QueryResponse) BeforeCreate(tx *gorm.DB) error {
	r.ID = ensureID(r.ID)
	r.AuthorEmail = NormalizeEmail(r.AuthorEmail)
	return nil
}
