package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/classroom-service/internal/authz"
	"github.com/SAP-F-2025/classroom-service/internal/validator"
)

// Not found errors, one per table reachable from the API
var (
	ErrInstitutionNotFound     = errors.New("institución no encontrada")
	ErrInstitutionRoleNotFound = errors.New("rol de institución no encontrado")
	ErrProfileNotFound         = errors.New("perfil no encontrado")
	ErrWhitelistNotFound       = errors.New("email no encontrado en la lista de acceso")
	ErrCourseNotFound          = errors.New("curso no encontrado")
	ErrEnrollmentNotFound      = errors.New("inscripción no encontrada")
	ErrClassNotFound           = errors.New("clase no encontrada")
	ErrResourceNotFound        = errors.New("recurso no encontrado")
	ErrAssignmentNotFound      = errors.New("tarea no encontrada")
	ErrSubmissionNotFound      = errors.New("entrega no encontrada")
	ErrTeamNotFound            = errors.New("equipo no encontrado")
	ErrSprintNotFound          = errors.New("sprint no encontrado")
	ErrQueryNotFound           = errors.New("consulta no encontrada")
)

var notFoundErrors = []error{
	ErrInstitutionNotFound, ErrInstitutionRoleNotFound, ErrProfileNotFound, ErrWhitelistNotFound,
	ErrCourseNotFound, ErrEnrollmentNotFound, ErrClassNotFound, ErrResourceNotFound,
	ErrAssignmentNotFound, ErrSubmissionNotFound, ErrTeamNotFound, ErrSprintNotFound, ErrQueryNotFound,
}

// ErrUnauthenticated means there is no valid session
var ErrUnauthenticated = authz.ErrUnauthenticated

// ValidationErrors is the field level error list returned for bad input
type ValidationErrors = validator.ValidationErrors

// ValidationError is one entry of ValidationErrors
type ValidationError = validator.ValidationError

// NewValidationError builds a single-field ValidationErrors
func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value}}
}

// PermissionError is returned when an authenticated caller lacks a capability.
// The message is shown to the user as is.
type PermissionError struct {
	Email      string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "no tienes permiso para realizar esta acción"
}

func NewPermissionError(email, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		Email:      email,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ConflictError reports a write that clashes with existing rows
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{Resource: resource, Message: message}
}

// UpstreamError wraps a failure of an external dependency: object storage,
// the language model or the identity provider.
type UpstreamError struct {
	Service string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(service, message string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Message: message, Err: err}
}

// ===== CLASSIFICATION =====

func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsPermissionError(err error) bool {
	var permErr *PermissionError
	return errors.As(err, &permErr)
}

func IsValidationError(err error) bool {
	var valErrs ValidationErrors
	return errors.As(err, &valErrs)
}

func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// permissionFromGate turns a gate error into the service taxonomy
func permissionFromGate(err error, email, resourceID, resource, action string) error {
	if err == nil {
		return nil
	}
	var denied *authz.Denied
	if errors.As(err, &denied) {
		return NewPermissionError(email, resourceID, resource, action, denied.Message)
	}
	if errors.Is(err, authz.ErrUnauthenticated) {
		return ErrUnauthenticated
	}
	return fmt.Errorf("authorization check failed: %w", err)
}
