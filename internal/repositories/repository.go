package repositories

import (
	"context"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
)

// Repository aggregates every table-level repository of the service
type Repository interface {
	// Platform domain
	Profile() ProfileRepository
	Whitelist() WhitelistRepository
	Institution() InstitutionRepository
	InstitutionRole() InstitutionRoleRepository

	// Course domain
	Course() CourseRepository
	Enrollment() EnrollmentRepository
	Team() TeamRepository
	TeamMessage() TeamMessageRepository
	Sprint() SprintRepository
	SprintReview() SprintReviewRepository

	// Content domain
	Class() ClassRepository
	ClassResource() ClassResourceRepository
	Assignment() AssignmentRepository
	AssignmentResource() AssignmentResourceRepository
	Submission() SubmissionRepository

	// Q&A and extraction
	Query() QueryRepository
	QueryResponse() QueryResponseRepository
	ExtractionRun() ExtractionRunRepository

	// Dashboard read models
	Dashboard() DashboardRepository

	// Membership reads through the elevated connection, bypassing row security
	Membership() authz.MembershipLookup

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
