package postgres

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/models"
)

func TestMembershipLookup_CaseInsensitiveEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inst := &models.Institution{Name: "Colegio Norte"}
	mustCreate(t, db, inst)
	course := &models.Course{InstitutionID: inst.ID, Name: "Física I"}
	mustCreate(t, db, course)
	mustCreate(t, db, &models.CourseEnrollment{CourseID: course.ID, Email: "user@example.com", Role: "docente"})

	lookup := NewMembershipLookup(db)

	roles, err := lookup.CourseRoles(ctx, "User@Example.com", course.ID)
	if err != nil {
		t.Fatalf("CourseRoles() error = %v", err)
	}
	if !reflect.DeepEqual(roles, []string{"docente"}) {
		t.Errorf("CourseRoles() = %v, want [docente]", roles)
	}
}

func TestMembershipLookup_LegacyMixedCaseRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inst := &models.Institution{Name: "Colegio Sur"}
	mustCreate(t, db, inst)
	course := &models.Course{InstitutionID: inst.ID, Name: "Historia"}
	mustCreate(t, db, course)

	// rows written before emails were normalized on insert
	if err := db.Exec(
		"INSERT INTO course_enrollments (id, course_id, email, role, created_at, updated_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
		"legacy-1", course.ID, "Ana.Perez@Example.COM", "Alumno").Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(
		"INSERT INTO institution_roles (id, institution_id, email, role, created_at) VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)",
		"legacy-2", inst.ID, "Director@Example.com", "admin").Error; err != nil {
		t.Fatal(err)
	}

	lookup := NewMembershipLookup(db)

	roles, err := lookup.CourseRoles(ctx, "ana.perez@example.com", course.ID)
	if err != nil {
		t.Fatalf("CourseRoles() error = %v", err)
	}
	if set := authz.ParseRoleSet(roles); !set.Has(authz.RoleStudent) {
		t.Errorf("legacy alumno row should canonicalize to estudiante, got %v", roles)
	}

	instRoles, err := lookup.InstitutionRoles(ctx, "director@example.com", inst.ID)
	if err != nil {
		t.Fatalf("InstitutionRoles() error = %v", err)
	}
	if !reflect.DeepEqual(instRoles, []string{"admin"}) {
		t.Errorf("InstitutionRoles() = %v", instRoles)
	}
}

func TestMembershipLookup_GlobalRoles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	profile := &models.Profile{Email: "Root@School.edu", FullName: "Root"}
	profile.SetRoles([]string{"admin-plataforma", "supervisor"})
	mustCreate(t, db, profile)

	lookup := NewMembershipLookup(db)

	roles, err := lookup.GlobalRoles(ctx, "root@school.EDU")
	if err != nil {
		t.Fatalf("GlobalRoles() error = %v", err)
	}
	sort.Strings(roles)
	if !reflect.DeepEqual(roles, []string{"admin-plataforma", "supervisor"}) {
		t.Errorf("GlobalRoles() = %v", roles)
	}

	none, err := lookup.GlobalRoles(ctx, "nobody@school.edu")
	if err != nil {
		t.Fatalf("missing profile should not be an error, got %v", err)
	}
	if len(none) != 0 {
		t.Errorf("GlobalRoles() for unknown email = %v, want empty", none)
	}
}

func TestMembershipLookup_NoMembershipIsEmptyNotError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	lookup := NewMembershipLookup(db)

	roles, err := lookup.CourseRoles(ctx, "nobody@school.edu", "missing-course")
	if err != nil || len(roles) != 0 {
		t.Errorf("CourseRoles() = %v, %v; want empty, nil", roles, err)
	}

	instID, err := lookup.CourseInstitution(ctx, "missing-course")
	if err != nil || instID != "" {
		t.Errorf("CourseInstitution() = %q, %v; want empty, nil", instID, err)
	}
}

func TestMembershipLookup_DrivesGate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inst := &models.Institution{Name: "Instituto"}
	mustCreate(t, db, inst)
	course := &models.Course{InstitutionID: inst.ID, Name: "Química"}
	other := &models.Course{InstitutionID: inst.ID, Name: "Biología"}
	mustCreate(t, db, course, other)
	mustCreate(t, db, &models.CourseEnrollment{CourseID: course.ID, Email: "prof@school.edu", Role: "docente"})

	gate := authz.NewGate(NewMembershipLookup(db))
	teacher := authz.Identity{Email: "Prof@School.edu"}

	if err := gate.Require(ctx, teacher, authz.Course(course.ID), authz.CapManage); err != nil {
		t.Errorf("enrolled teacher should manage, got %v", err)
	}
	if err := gate.Require(ctx, teacher, authz.Course(other.ID), authz.CapManage); err == nil {
		t.Error("teacher without enrollment must be denied")
	}
}
