package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/auth"
	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/cache"
	"github.com/SAP-F-2025/classroom-service/internal/events"
	"github.com/SAP-F-2025/classroom-service/internal/llm"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
	"github.com/SAP-F-2025/classroom-service/internal/storage"
	"github.com/SAP-F-2025/classroom-service/internal/validator"
)

const defaultGradeBatchSize = 10

// Buckets names the object storage buckets used by uploads
type Buckets struct {
	ClassResources string
	Submissions    string
}

// CleanupObserver is told about blob deletions that did not succeed
type CleanupObserver interface {
	StorageCleanupFailed(bucket, reason string)
}

// Dependencies is shared by every service. Storage, Sessions, Verifier and
// Extractor may be nil; the operations needing them then fail with an UpstreamError.
type Dependencies struct {
	Repo      repositories.Repository
	DB        *gorm.DB
	Gate      authz.Authorizer
	Logger    *slog.Logger
	Validator *validator.Validator
	Cache     *cache.CacheManager
	Events    events.Publisher

	Storage       storage.BlobStore
	Buckets       Buckets
	MaxUploadSize int64
	Cleanup       CleanupObserver

	Sessions  *auth.SessionManager
	Verifier  auth.IDTokenVerifier
	Extractor llm.Extractor

	GradeBatchSize int
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	if d.Cache == nil {
		d.Cache = cache.NewCacheManager(nil)
	}
	if d.Events == nil {
		d.Events = events.Discard{}
	}
	if d.Gate == nil && d.Repo != nil {
		d.Gate = authz.NewGate(d.Repo.Membership(), authz.WithLogger(d.Logger))
	}
	if d.GradeBatchSize <= 0 {
		d.GradeBatchSize = defaultGradeBatchSize
	}
	return d
}

// baseService carries the helpers every service uses
type baseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	gate      authz.Authorizer
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
	events    events.Publisher
	blobs     *blobCleaner
	deps      Dependencies
}

func newBaseService(deps Dependencies) *baseService {
	deps = deps.withDefaults()
	return &baseService{
		repo:      deps.Repo,
		db:        deps.DB,
		gate:      deps.Gate,
		logger:    deps.Logger,
		validator: deps.Validator,
		cache:     deps.Cache,
		events:    deps.Events,
		blobs:     &blobCleaner{store: deps.Storage, logger: deps.Logger, observer: deps.Cleanup},
		deps:      deps,
	}
}

func (s *baseService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// require runs the gate and converts its answer into the service error taxonomy
func (s *baseService) require(ctx context.Context, caller authz.Identity, resource authz.Resource, capability authz.Capability, action string) error {
	err := s.gate.Require(ctx, caller, resource, capability)
	return permissionFromGate(err, caller.Email, resource.ID, string(resource.Kind), action)
}

func (s *baseService) allowed(ctx context.Context, caller authz.Identity, resource authz.Resource, capability authz.Capability) (bool, error) {
	decision, err := s.gate.Authorize(ctx, caller, resource, capability)
	if err != nil {
		return false, fmt.Errorf("authorization check failed: %w", err)
	}
	return decision.Allowed, nil
}

func (s *baseService) validate(req interface{}) error {
	return s.validator.Validate(req)
}

// loadCourse reads a course outside of any transaction
func (s *baseService) loadCourse(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

// requireCourse authenticates, loads the course and checks the capability on it
func (s *baseService) requireCourse(ctx context.Context, caller authz.Identity, courseID string, capability authz.Capability, action string) (*models.Course, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, caller, authz.Course(course.ID), capability, action); err != nil {
		return nil, err
	}
	return course, nil
}

// requireFeature fails when the course does not have the module enabled
func (s *baseService) requireFeature(course *models.Course, feature string) error {
	if errs := s.validator.GetBusinessValidator().ValidateCourseFeature(course, feature); len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *baseService) courseRoles(ctx context.Context, caller authz.Identity, courseID string) (authz.RoleSet, error) {
	roles, err := s.gate.EffectiveRoles(ctx, caller, authz.Course(courseID))
	if err != nil {
		return authz.RoleSet{}, permissionFromGate(err, caller.Email, courseID, string(authz.KindCourse), "roles")
	}
	return roles, nil
}

func (s *baseService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.repo.Class().GetByID(ctx, nil, classID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return class, nil
}

func (s *baseService) loadAssignment(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, nil, assignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment, nil
}

func (s *baseService) loadTeam(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := s.repo.Team().GetByID(ctx, nil, teamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

func (s *baseService) publish(ctx context.Context, eventType string, data any) {
	s.events.Publish(ctx, eventType, data)
}

func (s *baseService) invalidateDashboards(ctx context.Context) {
	cache.InvalidateDashboards(ctx, s.cache)
}

// upload stores a file under the given key segments
func (s *baseService) upload(ctx context.Context, bucket string, req *UploadFileRequest, segments ...string) (*storage.Object, error) {
	if s.deps.Storage == nil {
		return nil, NewUpstreamError("storage", "el almacenamiento de archivos no está configurado", nil)
	}
	if req.Body == nil {
		return nil, NewValidationError("file", "es obligatorio", nil)
	}
	if s.deps.MaxUploadSize > 0 && req.Size > s.deps.MaxUploadSize {
		return nil, NewValidationError("file", fmt.Sprintf("supera el tamaño máximo de %d bytes", s.deps.MaxUploadSize), req.Size)
	}

	key := storage.ObjectKey(req.Filename, segments...)
	obj, err := s.deps.Storage.Upload(ctx, bucket, key, req.Body, req.Size, req.ContentType)
	if err != nil {
		return nil, NewUpstreamError("storage", "no se pudo subir el archivo", err)
	}
	return obj, nil
}

// blobCleaner removes stored files after their metadata row is gone.
// Failures are logged and counted, never returned.
type blobCleaner struct {
	store    storage.BlobStore
	logger   *slog.Logger
	observer CleanupObserver
}

// remove deletes the object behind a resource. Legacy rows have no storage
// path; it is then derived from the public URL. External links are skipped.
func (c *blobCleaner) remove(ctx context.Context, bucket string, storagePath *string, publicURL string) {
	if c.store == nil {
		return
	}

	key := ""
	if storagePath != nil && *storagePath != "" {
		key = *storagePath
	} else if derived, ok := c.store.PathFromPublicURL(bucket, publicURL); ok {
		key = derived
	}
	if key == "" {
		return
	}

	err := c.store.Delete(ctx, bucket, key)
	switch {
	case err == nil:
		return
	case errors.Is(err, storage.ErrObjectNotFound):
		c.logger.WarnContext(ctx, "Stored file already missing", "bucket", bucket, "key", key)
		c.observe(bucket, "missing")
	default:
		c.logger.ErrorContext(ctx, "Failed to delete stored file", "bucket", bucket, "key", key, "error", err)
		c.observe(bucket, "error")
	}
}

func (c *blobCleaner) observe(bucket, reason string) {
	if c.observer != nil {
		c.observer.StorageCleanupFailed(bucket, reason)
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptrTo[T any](v T) *T {
	return &v
}
