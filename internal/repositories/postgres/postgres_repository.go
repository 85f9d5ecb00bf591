package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/cache"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	adminDB      *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	profile            repositories.ProfileRepository
	whitelist          repositories.WhitelistRepository
	institution        repositories.InstitutionRepository
	institutionRole    repositories.InstitutionRoleRepository
	course             repositories.CourseRepository
	enrollment         repositories.EnrollmentRepository
	team               repositories.TeamRepository
	teamMessage        repositories.TeamMessageRepository
	sprint             repositories.SprintRepository
	sprintReview       repositories.SprintReviewRepository
	class              repositories.ClassRepository
	classResource      repositories.ClassResourceRepository
	assignment         repositories.AssignmentRepository
	assignmentResource repositories.AssignmentResourceRepository
	submission         repositories.SubmissionRepository
	query              repositories.QueryRepository
	queryResponse      repositories.QueryResponseRepository
	extractionRun      repositories.ExtractionRunRepository
	dashboard          repositories.DashboardRepository
	membership         authz.MembershipLookup
}

// RepositoryConfig holds configuration for repository initialization
// AdminDB is the elevated connection used for membership lookups and
// defaults to DB.
type RepositoryConfig struct {
	DB          *gorm.DB
	AdminDB     *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates a new repository with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	adminDB := config.AdminDB
	if adminDB == nil {
		adminDB = config.DB
	}

	repo := &PostgreSQLRepository{
		db:           config.DB,
		adminDB:      adminDB,
		redisClient:  config.RedisClient,
		cacheManager: cache.NewCacheManager(config.RedisClient),
		membership:   NewMembershipLookup(adminDB),
	}
	repo.bind(config.DB)
	return repo
}

// bind builds the table repositories on db, which is either the root
// connection or a transaction
func (r *PostgreSQLRepository) bind(db *gorm.DB) {
	r.profile = NewProfileRepository(db)
	r.whitelist = NewWhitelistRepository(db)
	r.institution = NewInstitutionRepository(db)
	r.institutionRole = NewInstitutionRoleRepository(db)
	r.course = NewCourseRepository(db, r.cacheManager)
	r.enrollment = NewEnrollmentRepository(db)
	r.team = NewTeamRepository(db)
	r.teamMessage = NewTeamMessageRepository(db)
	r.sprint = NewSprintRepository(db)
	r.sprintReview = NewSprintReviewRepository(db)
	r.class = NewClassRepository(db)
	r.classResource = NewClassResourceRepository(db)
	r.assignment = NewAssignmentRepository(db)
	r.assignmentResource = NewAssignmentResourceRepository(db)
	r.submission = NewSubmissionRepository(db)
	r.query = NewQueryRepository(db)
	r.queryResponse = NewQueryResponseRepository(db)
	r.extractionRun = NewExtractionRunRepository(db)
	r.dashboard = NewDashboardRepository(db)
}

func (r *PostgreSQLRepository) Profile() repositories.ProfileRepository {
	return r.profile
}

func (r *PostgreSQLRepository) Whitelist() repositories.WhitelistRepository {
	return r.whitelist
}

func (r *PostgreSQLRepository) Institution() repositories.InstitutionRepository {
	return r.institution
}

func (r *PostgreSQLRepository) InstitutionRole() repositories.InstitutionRoleRepository {
	return r.institutionRole
}

func (r *PostgreSQLRepository) Course() repositories.CourseRepository {
	return r.course
}

func (r *PostgreSQLRepository) Enrollment() repositories.EnrollmentRepository {
	return r.enrollment
}

func (r *PostgreSQLRepository) Team() repositories.TeamRepository {
	return r.team
}

func (r *PostgreSQLRepository) TeamMessage() repositories.TeamMessageRepository {
	return r.teamMessage
}

func (r *PostgreSQLRepository) Sprint() repositories.SprintRepository {
	return r.sprint
}

func (r *PostgreSQLRepository) SprintReview() repositories.SprintReviewRepository {
	return r.sprintReview
}

func (r *PostgreSQLRepository) Class() repositories.ClassRepository {
	return r.class
}

func (r *PostgreSQLRepository) ClassResource() repositories.ClassResourceRepository {
	return r.classResource
}

func (r *PostgreSQLRepository) Assignment() repositories.AssignmentRepository {
	return r.assignment
}

func (r *PostgreSQLRepository) AssignmentResource() repositories.AssignmentResourceRepository {
	return r.assignmentResource
}

func (r *PostgreSQLRepository) Submission() repositories.SubmissionRepository {
	return r.submission
}

func (r *PostgreSQLRepository) Query() repositories.QueryRepository {
	return r.query
}

func (r *PostgreSQLRepository) QueryResponse() repositories.QueryResponseRepository {
	return r.queryResponse
}

func (r *PostgreSQLRepository) ExtractionRun() repositories.ExtractionRunRepository {
	return r.extractionRun
}

func (r *PostgreSQLRepository) Dashboard() repositories.DashboardRepository {
	return r.dashboard
}

func (r *PostgreSQLRepository) Membership() authz.MembershipLookup {
	return r.membership
}

// WithTransaction executes a function within a database transaction. Membership
// lookups keep using the elevated connection.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:           tx,
			adminDB:      r.adminDB,
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
			membership:   r.membership,
		}
		txRepo.bind(tx)
		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}
	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	var errs []error

	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if r.adminDB != r.db {
		if adminSQL, err := r.adminDB.DB(); err == nil {
			if err := adminSQL.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close admin database: %w", err))
			}
		}
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize checks connectivity and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if err := rm.config.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)
	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
