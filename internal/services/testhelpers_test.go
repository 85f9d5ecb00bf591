package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
	"github.com/SAP-F-2025/classroom-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/classroom-service/internal/storage"
)

const (
	testResourcesBucket   = "class-resources"
	testSubmissionsBucket = "submissions"
)

type testEnv struct {
	db     *gorm.DB
	repo   repositories.Repository
	blobs  *fakeBlobStore
	events *recordingPublisher
	deps   Dependencies
}

// newTestEnv opens a private in-memory sqlite database. A single connection
// keeps the shared-cache database alive and serializes writers.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})
	blobs := newFakeBlobStore()
	pub := &recordingPublisher{}

	return &testEnv{
		db:     db,
		repo:   repo,
		blobs:  blobs,
		events: pub,
		deps: Dependencies{
			Repo:    repo,
			DB:      db,
			Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
			Events:  pub,
			Storage: blobs,
			Buckets: Buckets{
				ClassResources: testResourcesBucket,
				Submissions:    testSubmissionsBucket,
			},
			MaxUploadSize: 1 << 20,
		},
	}
}

func (e *testEnv) create(t *testing.T, values ...any) {
	t.Helper()
	for _, v := range values {
		if err := e.db.Create(v).Error; err != nil {
			t.Fatalf("failed to create %T: %v", v, err)
		}
	}
}

func (e *testEnv) institution(t *testing.T, name string) *models.Institution {
	t.Helper()
	inst := &models.Institution{Name: name}
	e.create(t, inst)
	return inst
}

type courseOpt func(*models.Course)

func withClasses(c *models.Course) { c.HasClasses = true }
func withTeams(c *models.Course)   { c.HasTeams = true }
func withSprints(c *models.Course) { c.HasSprints = true }

func (e *testEnv) course(t *testing.T, institutionID, name string, opts ...courseOpt) *models.Course {
	t.Helper()
	course := &models.Course{InstitutionID: institutionID, Name: name, Status: models.CourseActive}
	for _, opt := range opts {
		opt(course)
	}
	e.create(t, course)
	return course
}

func (e *testEnv) enroll(t *testing.T, courseID, email, role string) *models.CourseEnrollment {
	t.Helper()
	enrollment := &models.CourseEnrollment{CourseID: courseID, Email: email, Role: role}
	e.create(t, enrollment)
	return enrollment
}

func (e *testEnv) profile(t *testing.T, email string, roles ...string) *models.Profile {
	t.Helper()
	p := &models.Profile{Email: email, FullName: email}
	p.SetRoles(roles)
	e.create(t, p)
	return p
}

func (e *testEnv) institutionRole(t *testing.T, institutionID, email, role string) {
	t.Helper()
	e.create(t, &models.InstitutionRole{InstitutionID: institutionID, Email: email, Role: role})
}

func (e *testEnv) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("failed to count %T: %v", model, err)
	}
	return n
}

func who(email string) authz.Identity {
	return authz.Identity{UserID: "u-" + email, Email: email}
}

func uploadOf(name, content string) *UploadFileRequest {
	return &UploadFileRequest{
		Filename:    name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Body:        bytes.NewBufferString(content),
	}
}

func floatPtr(v float64) *float64 { return &v }

// ===== FAKES =====

// fakeBlobStore keeps objects in memory; deleting a missing key returns
// storage.ErrObjectNotFound like the S3 store.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failDel error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Upload(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) (*storage.Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return &storage.Object{Bucket: bucket, Key: key, URL: f.PublicURL(bucket, key), Size: int64(len(data))}, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel != nil {
		return f.failDel
	}
	if _, ok := f.objects[bucket+"/"+key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.objects, bucket+"/"+key)
	f.deleted = append(f.deleted, bucket+"/"+key)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[bucket+"/"+key]
	return ok, nil
}

func (f *fakeBlobStore) PublicURL(bucket, key string) string {
	return "https://files.test/" + bucket + "/" + key
}

func (f *fakeBlobStore) PathFromPublicURL(bucket, rawURL string) (string, bool) {
	return storage.PathFromPublicURL(bucket, rawURL)
}

func (f *fakeBlobStore) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeBlobStore) has(bucket, key string) bool {
	ok, _ := f.Exists(context.Background(), bucket, key)
	return ok
}

type publishedEvent struct {
	Type string
	Data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type cleanupCounter struct {
	mu      sync.Mutex
	reasons []string
}

func (c *cleanupCounter) StorageCleanupFailed(bucket, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}
