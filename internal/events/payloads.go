package events

import "time"

type CourseStatusChangedData struct {
	CourseID  string `json:"course_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by"`
}

type EnrollmentData struct {
	CourseID string `json:"course_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	By       string `json:"by"`
}

type SubmissionData struct {
	SubmissionID string     `json:"submission_id"`
	AssignmentID string     `json:"assignment_id"`
	CourseID     string     `json:"course_id"`
	StudentEmail string     `json:"student_email"`
	Grade        *float64   `json:"grade,omitempty"`
	GradedBy     string     `json:"graded_by,omitempty"`
	At           *time.Time `json:"at,omitempty"`
}

type QueryData struct {
	QueryID     string `json:"query_id"`
	CourseID    string `json:"course_id"`
	AuthorEmail string `json:"author_email"`
	Responder   string `json:"responder,omitempty"`
}
