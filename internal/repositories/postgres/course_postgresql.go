package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/cache"
	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

// ===== COURSES =====

type courseRepository struct {
	baseRepository
	cacheManager *cache.CacheManager
}

func NewCourseRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.CourseRepository {
	return &courseRepository{baseRepository: baseRepository{db: db}, cacheManager: cacheManager}
}

func (r *courseRepository) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(course).Error, "create course")
}

// GetByID reads through the course cache. Reads inside a transaction skip it.
func (r *courseRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	load := func() (any, error) {
		var course models.Course
		if err := r.getDB(tx).WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
			return nil, handleDBError(err, "get course")
		}
		return &course, nil
	}

	if tx != nil {
		value, err := load()
		if err != nil {
			return nil, err
		}
		return value.(*models.Course), nil
	}

	var course models.Course
	if err := r.cacheManager.Course.CacheOrExecute(ctx, cache.CourseKey(id), &course, cache.CourseCacheConfig.TTL, load); err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.Course, error) {
	var courses []*models.Course
	if len(ids) == 0 {
		return courses, nil
	}
	if err := r.getDB(tx).WithContext(ctx).
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&courses).Error; err != nil {
		return nil, handleDBError(err, "get courses by ids")
	}
	return courses, nil
}

func (r *courseRepository) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("Institution").Save(course).Error; err != nil {
		return handleDBError(err, "update course")
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, course.ID)
	return nil
}

func (r *courseRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status models.CourseStatus) error {
	result := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return handleDBError(result.Error, "update course status")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "update course status")
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, id)
	return nil
}

func (r *courseRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	if err := r.getDB(tx).WithContext(ctx).Delete(&models.Course{}, "id = ?", id).Error; err != nil {
		return handleDBError(err, "delete course")
	}
	cache.InvalidateCourseCache(ctx, r.cacheManager, id)
	return nil
}

func (r *courseRepository) ListByInstitution(ctx context.Context, tx *gorm.DB, institutionID string, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	var courses []*models.Course
	var total int64

	query := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("institution_id = ?", institutionID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Name != nil && *filters.Name != "" {
		query = whereLike(query, *filters.Name, "name")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count courses")
	}

	query = ApplyPaginationAndSort(query, []string{"created_at", "name", "status"},
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, handleDBError(err, "list courses")
	}
	return courses, total, nil
}

// ===== ENROLLMENTS =====

type enrollmentRepository struct {
	baseRepository
}

func NewEnrollmentRepository(db *gorm.DB) repositories.EnrollmentRepository {
	return &enrollmentRepository{baseRepository{db: db}}
}

func (r *enrollmentRepository) Create(ctx context.Context, tx *gorm.DB, enrollment *models.CourseEnrollment) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(enrollment).Error, "create enrollment")
}

func (r *enrollmentRepository) CreateBatch(ctx context.Context, tx *gorm.DB, enrollments []*models.CourseEnrollment) error {
	if len(enrollments) == 0 {
		return nil
	}
	return handleDBError(r.getDB(tx).WithContext(ctx).CreateInBatches(enrollments, 100).Error, "create enrollments")
}

func (r *enrollmentRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	if err := r.getDB(tx).WithContext(ctx).First(&enrollment, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get enrollment")
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) GetByCourseAndEmail(ctx context.Context, tx *gorm.DB, courseID, email string) (*models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	query := r.getDB(tx).WithContext(ctx).Where("course_id = ?", courseID)
	if err := whereEmail(query, "email", email).Order("created_at ASC").First(&enrollment).Error; err != nil {
		return nil, handleDBError(err, "get enrollment by email")
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) Update(ctx context.Context, tx *gorm.DB, enrollment *models.CourseEnrollment) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Save(enrollment).Error, "update enrollment")
}

func (r *enrollmentRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.CourseEnrollment{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete enrollment")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete enrollment")
	}
	return nil
}

func (r *enrollmentRepository) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&models.CourseEnrollment{}).Error, "delete course enrollments")
}

func (r *enrollmentRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.EnrollmentFilters) ([]*models.CourseEnrollment, error) {
	var enrollments []*models.CourseEnrollment

	query := r.getDB(tx).WithContext(ctx).Where("course_id = ?", courseID)
	if filters.TeamID != nil {
		query = query.Where("team_id = ?", *filters.TeamID)
	}

	if err := query.Order("email ASC").Find(&enrollments).Error; err != nil {
		return nil, handleDBError(err, "list enrollments")
	}
	return enrollments, nil
}

func (r *enrollmentRepository) ListByEmail(ctx context.Context, tx *gorm.DB, email string) ([]*models.CourseEnrollment, error) {
	var enrollments []*models.CourseEnrollment
	if err := whereEmail(r.getDB(tx).WithContext(ctx), "email", email).
		Order("created_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, handleDBError(err, "list enrollments by email")
	}
	return enrollments, nil
}

func (r *enrollmentRepository) ClearTeam(ctx context.Context, tx *gorm.DB, teamID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("team_id = ?", teamID).
		Update("team_id", nil).Error, "clear team members")
}

// ===== TEAMS =====

type teamRepository struct {
	baseRepository
}

func NewTeamRepository(db *gorm.DB) repositories.TeamRepository {
	return &teamRepository{baseRepository{db: db}}
}

func (r *teamRepository) Create(ctx context.Context, tx *gorm.DB, team *models.Team) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Omit("Members").Create(team).Error, "create team")
}

func (r *teamRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Team, error) {
	var team models.Team
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("email ASC") }).
		First(&team, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get team")
	}
	return &team, nil
}

func (r *teamRepository) Update(ctx context.Context, tx *gorm.DB, team *models.Team) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Omit("Members").Save(team).Error, "update team")
}

func (r *teamRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Delete(&models.Team{}, "id = ?", id).Error, "delete team")
}

func (r *teamRepository) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&models.Team{}).Error, "delete course teams")
}

func (r *teamRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Team, error) {
	var teams []*models.Team
	if err := r.getDB(tx).WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("email ASC") }).
		Where("course_id = ?", courseID).
		Order("name ASC").
		Find(&teams).Error; err != nil {
		return nil, handleDBError(err, "list teams")
	}
	return teams, nil
}

// ===== TEAM MESSAGES =====

type teamMessageRepository struct {
	baseRepository
}

func NewTeamMessageRepository(db *gorm.DB) repositories.TeamMessageRepository {
	return &teamMessageRepository{baseRepository{db: db}}
}

func (r *teamMessageRepository) Create(ctx context.Context, tx *gorm.DB, message *models.TeamMessage) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(message).Error, "create team message")
}

func (r *teamMessageRepository) ListByTeam(ctx context.Context, tx *gorm.DB, teamID string, limit, offset int) ([]*models.TeamMessage, int64, error) {
	var messages []*models.TeamMessage
	var total int64

	query := r.getDB(tx).WithContext(ctx).Model(&models.TeamMessage{}).Where("team_id = ?", teamID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count team messages")
	}

	query = ApplyPaginationAndSort(query, []string{"created_at"}, "", "desc", limit, offset)
	if err := query.Find(&messages).Error; err != nil {
		return nil, 0, handleDBError(err, "list team messages")
	}
	return messages, total, nil
}

func (r *teamMessageRepository) DeleteByTeam(ctx context.Context, tx *gorm.DB, teamID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("team_id = ?", teamID).
		Delete(&models.TeamMessage{}).Error, "delete team messages")
}

// ===== SPRINTS =====

type sprintRepository struct {
	baseRepository
}

func NewSprintRepository(db *gorm.DB) repositories.SprintRepository {
	return &sprintRepository{baseRepository{db: db}}
}

func (r *sprintRepository) Create(ctx context.Context, tx *gorm.DB, sprint *models.Sprint) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(sprint).Error, "create sprint")
}

func (r *sprintRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Sprint, error) {
	var sprint models.Sprint
	if err := r.getDB(tx).WithContext(ctx).First(&sprint, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get sprint")
	}
	return &sprint, nil
}

func (r *sprintRepository) Update(ctx context.Context, tx *gorm.DB, sprint *models.Sprint) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Save(sprint).Error, "update sprint")
}

func (r *sprintRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Delete(&models.Sprint{}, "id = ?", id).Error, "delete sprint")
}

func (r *sprintRepository) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Sprint, error) {
	var sprints []*models.Sprint
	if err := r.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("starts_at ASC, created_at ASC").
		Find(&sprints).Error; err != nil {
		return nil, handleDBError(err, "list sprints")
	}
	return sprints, nil
}

// ===== SPRINT REVIEWS =====

type sprintReviewRepository struct {
	baseRepository
}

func NewSprintReviewRepository(db *gorm.DB) repositories.SprintReviewRepository {
	return &sprintReviewRepository{baseRepository{db: db}}
}

func (r *sprintReviewRepository) Create(ctx context.Context, tx *gorm.DB, review *models.SprintReview) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(review).Error, "create sprint review")
}

func (r *sprintReviewRepository) Update(ctx context.Context, tx *gorm.DB, review *models.SprintReview) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Save(review).Error, "update sprint review")
}

func (r *sprintReviewRepository) GetBySprintAndTeam(ctx context.Context, tx *gorm.DB, sprintID, teamID string) (*models.SprintReview, error) {
	var review models.SprintReview
	if err := r.getDB(tx).WithContext(ctx).
		Where("sprint_id = ? AND team_id = ?", sprintID, teamID).
		First(&review).Error; err != nil {
		return nil, handleDBError(err, "get sprint review")
	}
	return &review, nil
}

func (r *sprintReviewRepository) ListBySprint(ctx context.Context, tx *gorm.DB, sprintID string) ([]*models.SprintReview, error) {
	var reviews []*models.SprintReview
	if err := r.getDB(tx).WithContext(ctx).
		Where("sprint_id = ?", sprintID).
		Order("created_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, handleDBError(err, "list sprint reviews")
	}
	return reviews, nil
}

func (r *sprintReviewRepository) DeleteBySprint(ctx context.Context, tx *gorm.DB, sprintID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("sprint_id = ?", sprintID).
		Delete(&models.SprintReview{}).Error, "delete sprint reviews")
}
