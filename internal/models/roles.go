package models

// Stored role names. Rows may still carry legacy spellings; canonicalization
// happens in the authz package when roles are read.
const (
	// profiles.roles
	RolePlatformAdmin = "admin-plataforma"
	RoleSupervisor    = "supervisor"

	// institution_roles.role
	InstitutionRoleAdmin   = "admin"
	InstitutionRoleTeacher = "docente"
	InstitutionRoleStaff   = "no-docente"

	// course_enrollments.role
	EnrollmentRoleTeacher       = "docente"
	EnrollmentRoleStudent       = "estudiante"
	EnrollmentRoleLegacyStudent = "alumno"
	EnrollmentRoleGuest         = "invitado"
)
