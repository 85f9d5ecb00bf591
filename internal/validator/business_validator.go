package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
)

// BusinessValidator handles rules that depend on stored state
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()
	return bv
}

// ValidateStatusTransition checks a course status change. Same-status
// updates are accepted and treated as no-ops by the caller.
func (bv *BusinessValidator) ValidateStatusTransition(current, next models.CourseStatus) ValidationErrors {
	if !next.Valid() {
		return ValidationErrors{{
			Field:   "status",
			Message: "estado de curso inválido",
			Value:   next,
			Rule:    "course_status",
		}}
	}
	if current == next {
		return nil
	}
	for _, allowed := range models.CourseStatusTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return ValidationErrors{{
		Field:   "status",
		Message: fmt.Sprintf("no se puede pasar de %s a %s", current, next),
		Value:   next,
		Rule:    "status_transition",
	}}
}

// ValidateGrade bounds a grade by the assignment maximum
func (bv *BusinessValidator) ValidateGrade(field string, grade, maxGrade float64) ValidationErrors {
	if grade < 0 || grade > maxGrade {
		return ValidationErrors{{
			Field:   field,
			Message: fmt.Sprintf("debe estar entre 0 y %g", maxGrade),
			Value:   grade,
			Rule:    "grade_range",
		}}
	}
	return nil
}

// ValidateDateRange requires end to be after start when both are set
func (bv *BusinessValidator) ValidateDateRange(field string, start, end *time.Time) ValidationErrors {
	if start != nil && end != nil && end.Before(*start) {
		return ValidationErrors{{
			Field:   field,
			Message: "la fecha de fin debe ser posterior a la de inicio",
			Value:   end,
			Rule:    "date_range",
		}}
	}
	return nil
}

// ValidateCourseFeature rejects writes to a structure the course does not use
func (bv *BusinessValidator) ValidateCourseFeature(course *models.Course, feature string) ValidationErrors {
	enabled := false
	switch feature {
	case "classes":
		enabled = course.HasClasses
	case "sprints":
		enabled = course.HasSprints
	case "teams":
		enabled = course.HasTeams
	}
	if enabled {
		return nil
	}
	return ValidationErrors{{
		Field:   feature,
		Message: fmt.Sprintf("el curso no tiene habilitado el módulo de %s", featureLabel(feature)),
		Value:   course.ID,
		Rule:    "course_feature",
	}}
}

func featureLabel(feature string) string {
	switch feature {
	case "classes":
		return "clases"
	case "sprints":
		return "sprints"
	case "teams":
		return "equipos"
	default:
		return feature
	}
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	bv.validate.RegisterValidation("course_status", func(fl validator.FieldLevel) bool {
		return models.CourseStatus(fl.Field().String()).Valid()
	})

	// legacy spellings such as "alumno" are accepted and canonicalized later
	bv.validate.RegisterValidation("course_role", func(fl validator.FieldLevel) bool {
		return authz.IsCourseRole(authz.CanonicalRole(fl.Field().String()))
	})

	bv.validate.RegisterValidation("institution_role", func(fl validator.FieldLevel) bool {
		return authz.IsInstitutionRole(authz.CanonicalRole(fl.Field().String()))
	})

	bv.validate.RegisterValidation("global_role", func(fl validator.FieldLevel) bool {
		return authz.IsGlobalRole(authz.CanonicalRole(fl.Field().String()))
	})

	bv.validate.RegisterValidation("resource_kind", func(fl validator.FieldLevel) bool {
		switch models.ResourceKind(fl.Field().String()) {
		case models.ResourceLink, models.ResourceFile, models.ResourceVideo, models.ResourceDocument:
			return true
		}
		return false
	})
}
