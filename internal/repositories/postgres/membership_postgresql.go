package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
)

// membershipLookup answers role questions for the authorization gate. It runs
// on the elevated connection so cross-tenant checks see every row.
type membershipLookup struct {
	db *gorm.DB
}

func NewMembershipLookup(adminDB *gorm.DB) authz.MembershipLookup {
	return &membershipLookup{db: adminDB}
}

func (m *membershipLookup) GlobalRoles(ctx context.Context, email string) ([]string, error) {
	var profile models.Profile
	err := whereEmail(m.db.WithContext(ctx), "email", email).
		Select("id", "roles").
		Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, handleDBError(err, "lookup global roles")
	}
	return profile.RoleNames(), nil
}

func (m *membershipLookup) InstitutionRoles(ctx context.Context, email, institutionID string) ([]string, error) {
	roles := []string{}
	query := m.db.WithContext(ctx).
		Model(&models.InstitutionRole{}).
		Where("institution_id = ?", institutionID)
	if err := whereEmail(query, "email", email).Pluck("role", &roles).Error; err != nil {
		return nil, handleDBError(err, "lookup institution roles")
	}
	return roles, nil
}

func (m *membershipLookup) CourseRoles(ctx context.Context, email, courseID string) ([]string, error) {
	roles := []string{}
	query := m.db.WithContext(ctx).
		Model(&models.CourseEnrollment{}).
		Where("course_id = ?", courseID)
	if err := whereEmail(query, "email", email).Pluck("role", &roles).Error; err != nil {
		return nil, handleDBError(err, "lookup course roles")
	}
	return roles, nil
}

func (m *membershipLookup) CourseInstitution(ctx context.Context, courseID string) (string, error) {
	var ids []string
	if err := m.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", courseID).
		Limit(1).
		Pluck("institution_id", &ids).Error; err != nil {
		return "", handleDBError(err, "lookup course institution")
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}
