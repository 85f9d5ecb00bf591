package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
	"github.com/SAP-F-2025/classroom-service/internal/repositories"
)

// ===== PROFILES =====

type profileRepository struct {
	baseRepository
}

func NewProfileRepository(db *gorm.DB) repositories.ProfileRepository {
	return &profileRepository{baseRepository{db: db}}
}

func (r *profileRepository) Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(profile).Error, "create profile")
}

func (r *profileRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.getDB(tx).WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get profile by id")
	}
	return &profile, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Profile, error) {
	var profile models.Profile
	query := whereEmail(r.getDB(tx).WithContext(ctx), "email", email)
	if err := query.First(&profile).Error; err != nil {
		return nil, handleDBError(err, "get profile by email")
	}
	return &profile, nil
}

func (r *profileRepository) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if len(emails) == 0 {
		return profiles, nil
	}
	normalized := make([]string, len(emails))
	for i, e := range emails {
		normalized[i] = models.NormalizeEmail(e)
	}
	if err := r.getDB(tx).WithContext(ctx).
		Where("LOWER(email) IN ?", normalized).
		Find(&profiles).Error; err != nil {
		return nil, handleDBError(err, "get profiles by emails")
	}
	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Save(profile).Error, "update profile")
}

func (r *profileRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.ProfileFilters) ([]*models.Profile, int64, error) {
	var profiles []*models.Profile
	var total int64

	query := r.getDB(tx).WithContext(ctx).Model(&models.Profile{})
	if filters.Search != "" {
		query = whereLike(query, filters.Search, "email", "full_name")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count profiles")
	}

	query = ApplyPaginationAndSort(query, []string{"created_at", "email", "full_name"},
		filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&profiles).Error; err != nil {
		return nil, 0, handleDBError(err, "list profiles")
	}
	return profiles, total, nil
}

// ===== WHITELIST =====

type whitelistRepository struct {
	baseRepository
}

func NewWhitelistRepository(db *gorm.DB) repositories.WhitelistRepository {
	return &whitelistRepository{baseRepository{db: db}}
}

func (r *whitelistRepository) Create(ctx context.Context, tx *gorm.DB, entry *models.WhitelistEntry) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(entry).Error, "create whitelist entry")
}

func (r *whitelistRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.WhitelistEntry, error) {
	var entry models.WhitelistEntry
	if err := whereEmail(r.getDB(tx).WithContext(ctx), "email", email).First(&entry).Error; err != nil {
		return nil, handleDBError(err, "get whitelist entry")
	}
	return &entry, nil
}

func (r *whitelistRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.WhitelistEntry{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete whitelist entry")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete whitelist entry")
	}
	return nil
}

func (r *whitelistRepository) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.WhitelistEntry, int64, error) {
	var entries []*models.WhitelistEntry
	var total int64

	query := r.getDB(tx).WithContext(ctx).Model(&models.WhitelistEntry{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count whitelist")
	}
	query = ApplyPaginationAndSort(query, []string{"created_at", "email"}, "", "", limit, offset)
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, handleDBError(err, "list whitelist")
	}
	return entries, total, nil
}

// ===== INSTITUTIONS =====

type institutionRepository struct {
	baseRepository
}

func NewInstitutionRepository(db *gorm.DB) repositories.InstitutionRepository {
	return &institutionRepository{baseRepository{db: db}}
}

func (r *institutionRepository) Create(ctx context.Context, tx *gorm.DB, institution *models.Institution) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(institution).Error, "create institution")
}

func (r *institutionRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Institution, error) {
	var institution models.Institution
	if err := r.getDB(tx).WithContext(ctx).First(&institution, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get institution")
	}
	count, err := r.CountCourses(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	institution.CourseCount = count
	return &institution, nil
}

func (r *institutionRepository) Update(ctx context.Context, tx *gorm.DB, institution *models.Institution) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Save(institution).Error, "update institution")
}

func (r *institutionRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.getDB(tx).WithContext(ctx).Delete(&models.Institution{}, "id = ?", id)
	if result.Error != nil {
		return handleDBError(result.Error, "delete institution")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete institution")
	}
	return nil
}

func (r *institutionRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.InstitutionFilters) ([]*models.Institution, int64, error) {
	db := r.getDB(tx).WithContext(ctx)
	var institutions []*models.Institution
	var total int64

	query := db.Model(&models.Institution{})
	if filters.IDs != nil {
		if len(filters.IDs) == 0 {
			return institutions, 0, nil
		}
		query = query.Where("id IN ?", filters.IDs)
	}
	if filters.Name != nil && *filters.Name != "" {
		query = whereLike(query, *filters.Name, "name")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count institutions")
	}

	query = ApplyPaginationAndSort(query, []string{"name", "created_at"},
		filters.SortBy, orDefault(filters.SortOrder, "asc"), filters.Limit, filters.Offset)
	if err := query.Find(&institutions).Error; err != nil {
		return nil, 0, handleDBError(err, "list institutions")
	}

	ids := make([]string, len(institutions))
	for i, inst := range institutions {
		ids[i] = inst.ID
	}
	counts, err := countByColumn(db, &models.Course{}, "institution_id", ids, nil)
	if err != nil {
		return nil, 0, handleDBError(err, "count institution courses")
	}
	for _, inst := range institutions {
		inst.CourseCount = counts[inst.ID]
	}

	return institutions, total, nil
}

func (r *institutionRepository) CountCourses(ctx context.Context, tx *gorm.DB, id string) (int64, error) {
	var count int64
	if err := r.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("institution_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count courses")
	}
	return count, nil
}

// ===== INSTITUTION ROLES =====

type institutionRoleRepository struct {
	baseRepository
}

func NewInstitutionRoleRepository(db *gorm.DB) repositories.InstitutionRoleRepository {
	return &institutionRoleRepository{baseRepository{db: db}}
}

func (r *institutionRoleRepository) Create(ctx context.Context, tx *gorm.DB, role *models.InstitutionRole) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Create(role).Error, "create institution role")
}

func (r *institutionRoleRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.InstitutionRole, error) {
	var role models.InstitutionRole
	if err := r.getDB(tx).WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, handleDBError(err, "get institution role")
	}
	return &role, nil
}

func (r *institutionRoleRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).Delete(&models.InstitutionRole{}, "id = ?", id).Error, "delete institution role")
}

func (r *institutionRoleRepository) DeleteByInstitution(ctx context.Context, tx *gorm.DB, institutionID string) error {
	return handleDBError(r.getDB(tx).WithContext(ctx).
		Where("institution_id = ?", institutionID).
		Delete(&models.InstitutionRole{}).Error, "delete institution roles")
}

func (r *institutionRoleRepository) ListByInstitution(ctx context.Context, tx *gorm.DB, institutionID string) ([]*models.InstitutionRole, error) {
	var roles []*models.InstitutionRole
	if err := r.getDB(tx).WithContext(ctx).
		Where("institution_id = ?", institutionID).
		Order("email ASC").
		Find(&roles).Error; err != nil {
		return nil, handleDBError(err, "list institution roles")
	}
	return roles, nil
}

func (r *institutionRoleRepository) ListByEmail(ctx context.Context, tx *gorm.DB, email string) ([]*models.InstitutionRole, error) {
	var roles []*models.InstitutionRole
	if err := whereEmail(r.getDB(tx).WithContext(ctx), "email", email).
		Find(&roles).Error; err != nil {
		return nil, handleDBError(err, "list institution roles by email")
	}
	return roles, nil
}

func (r *institutionRoleRepository) Exists(ctx context.Context, tx *gorm.DB, institutionID, email, role string) (bool, error) {
	var count int64
	query := r.getDB(tx).WithContext(ctx).
		Model(&models.InstitutionRole{}).
		Where("institution_id = ? AND role = ?", institutionID, role)
	if err := whereEmail(query, "email", email).Count(&count).Error; err != nil {
		return false, handleDBError(err, "check institution role")
	}
	return count > 0, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
