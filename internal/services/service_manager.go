package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/classroom-service/internal/cache"
)

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps Dependencies

	// Service instances
	platformService   PlatformService
	sessionService    SessionService
	courseService     CourseService
	enrollmentService EnrollmentService
	classService      ClassService
	assignmentService AssignmentService
	submissionService SubmissionService
	teamService       TeamService
	sprintService     SprintService
	queryService      QueryService
	dashboardService  DashboardService
	extractionService ExtractionService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a service manager sharing deps between all services
func NewServiceManager(deps Dependencies) ServiceManager {
	return &serviceManager{deps: deps.withDefaults()}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.deps.Repo == nil || sm.deps.DB == nil {
		return errors.New("service manager needs a repository and a database")
	}

	logger := sm.deps.Logger
	logger.Info("Initializing service manager")

	sm.platformService = NewPlatformService(sm.deps)
	sm.sessionService = NewSessionService(sm.deps)
	sm.courseService = NewCourseService(sm.deps)
	sm.enrollmentService = NewEnrollmentService(sm.deps)
	sm.classService = NewClassService(sm.deps)
	sm.assignmentService = NewAssignmentService(sm.deps)
	sm.submissionService = NewSubmissionService(sm.deps)
	sm.teamService = NewTeamService(sm.deps)
	sm.sprintService = NewSprintService(sm.deps)
	sm.queryService = NewQueryService(sm.deps)
	sm.dashboardService = NewDashboardService(sm.deps)
	sm.extractionService = NewExtractionService(sm.deps)

	if sm.deps.Storage == nil {
		logger.Warn("Object storage not configured, uploads are disabled")
	}
	if sm.deps.Sessions == nil || sm.deps.Verifier == nil {
		logger.Warn("Identity provider not configured, sign-in is disabled")
	}
	if sm.deps.Extractor == nil {
		logger.Warn("Language model not configured, extraction is disabled")
	}

	sm.initialized = true
	logger.Info("Service manager initialized successfully", "grade_batch_size", sm.deps.GradeBatchSize)
	return nil
}

// mustBeReady panics when a getter is used before Initialize
func (sm *serviceManager) mustBeReady() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Service getters
func (sm *serviceManager) Platform() PlatformService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.platformService
}

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.sessionService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.courseService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.enrollmentService
}

func (sm *serviceManager) Class() ClassService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.classService
}

func (sm *serviceManager) Assignment() AssignmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.assignmentService
}

func (sm *serviceManager) Submission() SubmissionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.submissionService
}

func (sm *serviceManager) Team() TeamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.teamService
}

func (sm *serviceManager) Sprint() SprintService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.sprintService
}

func (sm *serviceManager) Query() QueryService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.queryService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.dashboardService
}

func (sm *serviceManager) Extraction() ExtractionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeReady()
	return sm.extractionService
}

// Health and lifecycle

// HealthCheck pings the database. A missing cache is not an error, an
// unreachable one is.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	if err := sm.deps.Cache.HealthCheck(ctx); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
		return err
	}
	return nil
}

// Shutdown closes the event publisher. Database connections belong to the
// repository manager and are closed by its owner.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if err := sm.deps.Events.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")
	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
