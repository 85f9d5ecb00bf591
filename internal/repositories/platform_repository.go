package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/models"
)

// ProfileRepository reads and writes user profiles and their global roles
type ProfileRepository interface {
	Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Profile, error)
	Update(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	List(ctx context.Context, tx *gorm.DB, filters ProfileFilters) ([]*models.Profile, int64, error)
	GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*models.Profile, error)
}

type WhitelistRepository interface {
	Create(ctx context.Context, tx *gorm.DB, entry *models.WhitelistEntry) error
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.WhitelistEntry, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.WhitelistEntry, int64, error)
}

type InstitutionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, institution *models.Institution) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Institution, error)
	Update(ctx context.Context, tx *gorm.DB, institution *models.Institution) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	// List fills CourseCount on every returned institution
	List(ctx context.Context, tx *gorm.DB, filters InstitutionFilters) ([]*models.Institution, int64, error)
	CountCourses(ctx context.Context, tx *gorm.DB, id string) (int64, error)
}

type InstitutionRoleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, role *models.InstitutionRole) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.InstitutionRole, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	DeleteByInstitution(ctx context.Context, tx *gorm.DB, institutionID string) error
	ListByInstitution(ctx context.Context, tx *gorm.DB, institutionID string) ([]*models.InstitutionRole, error)
	ListByEmail(ctx context.Context, tx *gorm.DB, email string) ([]*models.InstitutionRole, error)
	Exists(ctx context.Context, tx *gorm.DB, institutionID, email, role string) (bool, error)
}
