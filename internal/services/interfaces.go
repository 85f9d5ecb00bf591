package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/classroom-service/internal/auth"
	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/llm"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

// ===== PLATFORM DTOs =====

type CreateInstitutionRequest struct {
	Name        string  `json:"name" validate:"notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url,max=500"`
}

type UpdateInstitutionRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,url,max=500"`
}

type ListInstitutionsRequest struct {
	Name string `form:"name"`
	Page int    `form:"page"`
	Size int    `form:"size"`
}

type InstitutionListResponse struct {
	Institutions []*models.Institution `json:"institutions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	Size         int                   `json:"size"`
}

type AssignInstitutionRoleRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,institution_role"`
}

type WhitelistRequest struct {
	Email string   `json:"email" validate:"required,email"`
	Roles []string `json:"roles" validate:"omitempty,dive,global_role"`
	Note  *string  `json:"note" validate:"omitempty,max=500"`
}

type WhitelistListResponse struct {
	Entries []*models.WhitelistEntry `json:"entries"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	Size    int                      `json:"size"`
}

type ListProfilesRequest struct {
	Search string `form:"search"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

type ProfileListResponse struct {
	Profiles []*models.Profile `json:"profiles"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
}

type SetGlobalRolesRequest struct {
	Roles []string `json:"roles" validate:"dive,global_role"`
}

// ===== SESSION DTOs =====

type LoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// SessionResult carries the signed session; Token goes into the cookie only
type SessionResult struct {
	Token     string          `json:"-"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile"`
	Roles     []string        `json:"roles"`
}

type MeResponse struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	AvatarURL *string  `json:"avatar_url,omitempty"`
	Roles     []string `json:"roles"`
}

// ===== COURSE DTOs =====

type CreateCourseRequest struct {
	InstitutionID string     `json:"institution_id" validate:"required"`
	Name          string     `json:"name" validate:"notblank,max=200"`
	Description   *string    `json:"description" validate:"omitempty,max=5000"`
	HasClasses    bool       `json:"has_classes"`
	HasSprints    bool       `json:"has_sprints"`
	HasTeams      bool       `json:"has_teams"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
}

type UpdateCourseRequest struct {
	Name        *string    `json:"name" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	HasClasses  *bool      `json:"has_classes"`
	HasSprints  *bool      `json:"has_sprints"`
	HasTeams    *bool      `json:"has_teams"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

type UpdateCourseStatusRequest struct {
	Status string `json:"status" validate:"required,course_status"`
}

type ListCoursesRequest struct {
	Status string `form:"status" validate:"omitempty,course_status"`
	Name   string `form:"name"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

type CourseResponse struct {
	*models.Course
	Roles     []string `json:"roles"`
	CanManage bool     `json:"can_manage"`
}

type CourseListResponse struct {
	Courses []*models.Course `json:"courses"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
}

type MyCourse struct {
	*models.Course
	Role string `json:"role"`
}

// ===== ENROLLMENT DTOs =====

type EnrollRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	Role     string  `json:"role" validate:"required,course_role"`
}

type BulkEnrollRequest struct {
	Entries []EnrollRequest `json:"entries" validate:"required,min=1,max=500,dive"`
}

type SkippedEnrollment struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type BulkEnrollResult struct {
	Created []*models.CourseEnrollment `json:"created"`
	Skipped []SkippedEnrollment        `json:"skipped"`
}

type UpdateEnrollmentRoleRequest struct {
	Role string `json:"role" validate:"required,course_role"`
}

type AssignTeamRequest struct {
	TeamID *string `json:"team_id"`
}

type ListEnrollmentsRequest struct {
	Role   string `form:"role"`
	TeamID string `form:"team_id"`
}

// ===== CONTENT DTOs =====

type CreateClassRequest struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Position    *int       `json:"position" validate:"omitempty,min=0"`
}

type UpdateClassRequest struct {
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Position    *int       `json:"position" validate:"omitempty,min=0"`
}

type AddResourceRequest struct {
	Title string `json:"title" validate:"notblank,max=200"`
	URL   string `json:"url" validate:"required,url,max=1000"`
	Kind  string `json:"kind" validate:"omitempty,resource_kind"`
}

// UploadFileRequest is built by handlers from a multipart form
type UploadFileRequest struct {
	Title       string    `json:"title" validate:"omitempty,max=200"`
	Filename    string    `json:"filename" validate:"notblank,max=255"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size" validate:"gt=0"`
	Body        io.Reader `json:"-"`
}

type CreateAssignmentRequest struct {
	ClassID     *string    `json:"class_id"`
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	DueAt       *time.Time `json:"due_at"`
	MaxGrade    *float64   `json:"max_grade" validate:"omitempty,gt=0,lte=1000"`
}

type UpdateAssignmentRequest struct {
	ClassID     *string    `json:"class_id"`
	Title       *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	DueAt       *time.Time `json:"due_at"`
	MaxGrade    *float64   `json:"max_grade" validate:"omitempty,gt=0,lte=1000"`
}

type ListAssignmentsRequest struct {
	ClassID string `form:"class_id"`
}

// ===== SUBMISSION DTOs =====

type SubmitRequest struct {
	Content *string            `json:"content" validate:"omitempty,max=20000"`
	File    *UploadFileRequest `json:"-"`
}

type SetGradeRequest struct {
	StudentEmail string   `json:"student_email" validate:"required,email"`
	Grade        *float64 `json:"grade" validate:"required"`
	Feedback     *string  `json:"feedback" validate:"omitempty,max=5000"`
}

type BulkGradeRequest struct {
	Grades []SetGradeRequest `json:"grades" validate:"required,min=1,max=1000,dive"`
}

type BulkGradeResult struct {
	Updated int `json:"updated"`
}

type GradebookExport struct {
	Filename string
	Content  []byte
}

// ===== TEAM & SPRINT DTOs =====

type CreateTeamRequest struct {
	Name        string  `json:"name" validate:"notblank,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=120"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type PostMessageRequest struct {
	Body string `json:"body" validate:"notblank,max=5000"`
}

type MessageListResponse struct {
	Messages []*models.TeamMessage `json:"messages"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	Size     int                   `json:"size"`
}

type CreateSprintRequest struct {
	Name     string     `json:"name" validate:"notblank,max=120"`
	Goal     *string    `json:"goal" validate:"omitempty,max=2000"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type UpdateSprintRequest struct {
	Name     *string    `json:"name" validate:"omitempty,notblank,max=120"`
	Goal     *string    `json:"goal" validate:"omitempty,max=2000"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type SprintReviewRequest struct {
	TeamID   string   `json:"team_id" validate:"required"`
	Feedback string   `json:"feedback" validate:"max=5000"`
	Grade    *float64 `json:"grade" validate:"omitempty,gte=0,lte=10"`
}

// ===== QUERY DTOs =====

type CreateQueryRequest struct {
	Title        string  `json:"title" validate:"notblank,max=200"`
	Body         string  `json:"body" validate:"notblank,max=10000"`
	ClassID      *string `json:"class_id"`
	AssignmentID *string `json:"assignment_id"`
}

type ListQueriesRequest struct {
	Resolved     *bool  `form:"resolved"`
	ClassID      string `form:"class_id"`
	AssignmentID string `form:"assignment_id"`
	Page         int    `form:"page"`
	Size         int    `form:"size"`
}

type QueryListResponse struct {
	Queries []*models.CourseQuery `json:"queries"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	Size    int                   `json:"size"`
}

type QueryThreadResponse struct {
	Query       *models.CourseQuery     `json:"query"`
	Responses   []*models.QueryResponse `json:"responses"`
	Total       int64                   `json:"total"`
	Page        int                     `json:"page"`
	Size        int                     `json:"size"`
	CanModerate bool                    `json:"can_moderate"`
}

type RespondQueryRequest struct {
	Body string `json:"body" validate:"notblank,max=10000"`
}

type ResolveQueryRequest struct {
	Resolved bool `json:"resolved"`
}

// ===== DASHBOARD DTOs =====

type InstitutionSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CourseCount int64  `json:"course_count"`
}

type TeachingCourse struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Status              models.CourseStatus `json:"status"`
	UngradedSubmissions int64               `json:"ungraded_submissions"`
	OpenQueries         int64               `json:"open_queries"`
}

type EnrolledCourse struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Status models.CourseStatus `json:"status"`
	Role   string              `json:"role"`
}

// DashboardResponse sections are filled according to the caller's roles
type DashboardResponse struct {
	Email                    string                                `json:"email"`
	Roles                    []string                              `json:"roles"`
	Platform                 *repositories.PlatformTotals          `json:"platform,omitempty"`
	AdministeredInstitutions []InstitutionSummary                  `json:"administered_institutions,omitempty"`
	StaffInstitutions        []InstitutionSummary                  `json:"staff_institutions,omitempty"`
	StaffCourses             []EnrolledCourse                      `json:"staff_courses,omitempty"`
	TeachingCourses          []TeachingCourse                      `json:"teaching_courses,omitempty"`
	EnrolledCourses          []EnrolledCourse                      `json:"enrolled_courses,omitempty"`
	UpcomingAssignments      []repositories.UpcomingAssignmentData `json:"upcoming_assignments,omitempty"`
	GeneratedAt              time.Time                             `json:"generated_at"`
}

// ===== EXTRACTION DTOs =====

type ExtractTextRequest struct {
	Text string `json:"text" validate:"notblank,max=50000"`
}

type ExtractAssignmentsRequest struct {
	Text string `json:"text" validate:"notblank,max=50000"`
	Year int    `json:"year" validate:"omitempty,min=2000,max=2100"`
}

type MatchNamesRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=500,dive,notblank"`
}

type ResourcesExtraction struct {
	RunID     string                  `json:"run_id"`
	Resources []llm.ExtractedResource `json:"resources"`
}

type AssignmentsExtraction struct {
	RunID       string                    `json:"run_id"`
	Assignments []llm.ExtractedAssignment `json:"assignments"`
}

type RosterExtraction struct {
	RunID    string                 `json:"run_id"`
	Students []llm.ExtractedStudent `json:"students"`
}

type NameMatchExtraction struct {
	RunID   string          `json:"run_id"`
	Matches []llm.NameMatch `json:"matches"`
}

// ===== SERVICE INTERFACES =====

type PlatformService interface {
	CreateInstitution(ctx context.Context, caller authz.Identity, req *CreateInstitutionRequest) (*models.Institution, error)
	GetInstitution(ctx context.Context, caller authz.Identity, id string) (*models.Institution, error)
	UpdateInstitution(ctx context.Context, caller authz.Identity, id string, req *UpdateInstitutionRequest) (*models.Institution, error)
	DeleteInstitution(ctx context.Context, caller authz.Identity, id string) error
	ListInstitutions(ctx context.Context, caller authz.Identity, req *ListInstitutionsRequest) (*InstitutionListResponse, error)

	AssignInstitutionRole(ctx context.Context, caller authz.Identity, institutionID string, req *AssignInstitutionRoleRequest) (*models.InstitutionRole, error)
	RemoveInstitutionRole(ctx context.Context, caller authz.Identity, institutionID, roleID string) error
	ListInstitutionRoles(ctx context.Context, caller authz.Identity, institutionID string) ([]*models.InstitutionRole, error)

	AddToWhitelist(ctx context.Context, caller authz.Identity, req *WhitelistRequest) (*models.WhitelistEntry, error)
	RemoveFromWhitelist(ctx context.Context, caller authz.Identity, entryID string) error
	ListWhitelist(ctx context.Context, caller authz.Identity, page, size int) (*WhitelistListResponse, error)

	ListProfiles(ctx context.Context, caller authz.Identity, req *ListProfilesRequest) (*ProfileListResponse, error)
	SetGlobalRoles(ctx context.Context, caller authz.Identity, profileID string, req *SetGlobalRolesRequest) (*models.Profile, error)
}

type SessionService interface {
	Login(ctx context.Context, req *LoginRequest) (*SessionResult, error)
	Logout(ctx context.Context, claims *auth.SessionClaims) error
	Resolve(ctx context.Context, token string) (authz.Identity, *auth.SessionClaims, error)
	Me(ctx context.Context, caller authz.Identity) (*MeResponse, error)
}

type CourseService interface {
	Create(ctx context.Context, caller authz.Identity, req *CreateCourseRequest) (*models.Course, error)
	Get(ctx context.Context, caller authz.Identity, id string) (*CourseResponse, error)
	Update(ctx context.Context, caller authz.Identity, id string, req *UpdateCourseRequest) (*models.Course, error)
	UpdateStatus(ctx context.Context, caller authz.Identity, id string, req *UpdateCourseStatusRequest) (*models.Course, error)
	Delete(ctx context.Context, caller authz.Identity, id string) error
	ListByInstitution(ctx context.Context, caller authz.Identity, institutionID string, req *ListCoursesRequest) (*CourseListResponse, error)
	ListMine(ctx context.Context, caller authz.Identity) ([]*MyCourse, error)
}

type EnrollmentService interface {
	Enroll(ctx context.Context, caller authz.Identity, courseID string, req *EnrollRequest) (*models.CourseEnrollment, error)
	BulkEnroll(ctx context.Context, caller authz.Identity, courseID string, req *BulkEnrollRequest) (*BulkEnrollResult, error)
	ImportRoster(ctx context.Context, caller authz.Identity, courseID string, file io.Reader) (*BulkEnrollResult, error)
	UpdateRole(ctx context.Context, caller authz.Identity, courseID, enrollmentID string, req *UpdateEnrollmentRoleRequest) (*models.CourseEnrollment, error)
	AssignTeam(ctx context.Context, caller authz.Identity, courseID, enrollmentID string, req *AssignTeamRequest) (*models.CourseEnrollment, error)
	Remove(ctx context.Context, caller authz.Identity, courseID, enrollmentID string) error
	List(ctx context.Context, caller authz.Identity, courseID string, req *ListEnrollmentsRequest) ([]*models.CourseEnrollment, error)
}

type ClassService interface {
	Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateClassRequest) (*models.Class, error)
	Get(ctx context.Context, caller authz.Identity, classID string) (*models.Class, error)
	Update(ctx context.Context, caller authz.Identity, classID string, req *UpdateClassRequest) (*models.Class, error)
	Delete(ctx context.Context, caller authz.Identity, classID string) error
	List(ctx context.Context, caller authz.Identity, courseID string) ([]*models.Class, error)

	AddLink(ctx context.Context, caller authz.Identity, classID string, req *AddResourceRequest) (*models.ClassResource, error)
	UploadFile(ctx context.Context, caller authz.Identity, classID string, req *UploadFileRequest) (*models.ClassResource, error)
	DeleteResource(ctx context.Context, caller authz.Identity, classID, resourceID string) error
}

type AssignmentService interface {
	Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateAssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, caller authz.Identity, assignmentID string) (*models.Assignment, error)
	Update(ctx context.Context, caller authz.Identity, assignmentID string, req *UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, caller authz.Identity, assignmentID string) error
	List(ctx context.Context, caller authz.Identity, courseID string, req *ListAssignmentsRequest) ([]*models.Assignment, error)

	AddLink(ctx context.Context, caller authz.Identity, assignmentID string, req *AddResourceRequest) (*models.AssignmentResource, error)
	UploadFile(ctx context.Context, caller authz.Identity, assignmentID string, req *UploadFileRequest) (*models.AssignmentResource, error)
	DeleteResource(ctx context.Context, caller authz.Identity, assignmentID, resourceID string) error
}

type SubmissionService interface {
	Submit(ctx context.Context, caller authz.Identity, assignmentID string, req *SubmitRequest) (*models.AssignmentSubmission, error)
	SetGrade(ctx context.Context, caller authz.Identity, assignmentID string, req *SetGradeRequest) (*models.AssignmentSubmission, error)
	BulkGrade(ctx context.Context, caller authz.Identity, assignmentID string, req *BulkGradeRequest) (*BulkGradeResult, error)
	List(ctx context.Context, caller authz.Identity, assignmentID string) ([]*models.AssignmentSubmission, error)
	ExportGradebook(ctx context.Context, caller authz.Identity, courseID string) (*GradebookExport, error)
}

type TeamService interface {
	Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateTeamRequest) (*models.Team, error)
	Get(ctx context.Context, caller authz.Identity, teamID string) (*models.Team, error)
	Update(ctx context.Context, caller authz.Identity, teamID string, req *UpdateTeamRequest) (*models.Team, error)
	Delete(ctx context.Context, caller authz.Identity, teamID string) error
	List(ctx context.Context, caller authz.Identity, courseID string) ([]*models.Team, error)

	PostMessage(ctx context.Context, caller authz.Identity, teamID string, req *PostMessageRequest) (*models.TeamMessage, error)
	ListMessages(ctx context.Context, caller authz.Identity, teamID string, page, size int) (*MessageListResponse, error)
}

type SprintService interface {
	Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateSprintRequest) (*models.Sprint, error)
	Update(ctx context.Context, caller authz.Identity, sprintID string, req *UpdateSprintRequest) (*models.Sprint, error)
	Delete(ctx context.Context, caller authz.Identity, sprintID string) error
	List(ctx context.Context, caller authz.Identity, courseID string) ([]*models.Sprint, error)

	UpsertReview(ctx context.Context, caller authz.Identity, sprintID string, req *SprintReviewRequest) (*models.SprintReview, error)
	ListReviews(ctx context.Context, caller authz.Identity, sprintID string) ([]*models.SprintReview, error)
}

type QueryService interface {
	Create(ctx context.Context, caller authz.Identity, courseID string, req *CreateQueryRequest) (*models.CourseQuery, error)
	List(ctx context.Context, caller authz.Identity, courseID string, req *ListQueriesRequest) (*QueryListResponse, error)
	GetThread(ctx context.Context, caller authz.Identity, queryID string, page, size int) (*QueryThreadResponse, error)
	Respond(ctx context.Context, caller authz.Identity, queryID string, req *RespondQueryRequest) (*models.QueryResponse, error)
	SetResolved(ctx context.Context, caller authz.Identity, queryID string, req *ResolveQueryRequest) (*models.CourseQuery, error)
	Delete(ctx context.Context, caller authz.Identity, queryID string) error
}

type DashboardService interface {
	Get(ctx context.Context, caller authz.Identity) (*DashboardResponse, error)
}

type ExtractionService interface {
	ExtractResources(ctx context.Context, caller authz.Identity, courseID string, req *ExtractTextRequest) (*ResourcesExtraction, error)
	ExtractAssignments(ctx context.Context, caller authz.Identity, courseID string, req *ExtractAssignmentsRequest) (*AssignmentsExtraction, error)
	ExtractRoster(ctx context.Context, caller authz.Identity, courseID string, req *ExtractTextRequest) (*RosterExtraction, error)
	MatchNames(ctx context.Context, caller authz.Identity, courseID string, req *MatchNamesRequest) (*NameMatchExtraction, error)
	ListRuns(ctx context.Context, caller authz.Identity, courseID string) ([]*models.ExtractionRun, error)
}

// ServiceManager owns every service and their shared dependencies
type ServiceManager interface {
	Platform() PlatformService
	Session() SessionService
	Course() CourseService
	Enrollment() EnrollmentService
	Class() ClassService
	Assignment() AssignmentService
	Submission() SubmissionService
	Team() TeamService
	Sprint() SprintService
	Query() QueryService
	Dashboard() DashboardService
	Extraction() ExtractionService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
