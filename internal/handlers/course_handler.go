package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

// CourseHandler serves courses and their enrollments
type CourseHandler struct {
	BaseHandler
	courses     services.CourseService
	enrollments services.EnrollmentService
}

func NewCourseHandler(courses services.CourseService, enrollments services.EnrollmentService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler: NewBaseHandler(logger),
		courses:     courses,
		enrollments: enrollments,
	}
}

// CreateCourse creates a course in draft status
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param body body services.CreateCourseRequest true "Course data"
// @Success 201 {object} Response{data=models.Course}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.courses.Create(c.Request.Context(), identity(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, course)
}

// GetCourse returns the course with the caller's roles in it
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} Response{data=services.CourseResponse}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, course)
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	course, err := h.courses.Update(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, course)
}

// UpdateCourseStatus moves the course through its lifecycle
// @Summary Update course status
// @Tags courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param body body services.UpdateCourseStatusRequest true "New status"
// @Success 200 {object} Response{data=models.Course}
// @Failure 400 {object} Response "Transition not allowed"
// @Router /courses/{id}/status [put]
func (h *CourseHandler) UpdateCourseStatus(c *gin.Context) {
	var req services.UpdateCourseStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating course status", "course_id", c.Param("id"), "status", req.Status)

	course, err := h.courses.UpdateStatus(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, course)
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	h.LogRequest(c, "Deleting course", "course_id", c.Param("id"))

	if err := h.courses.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

func (h *CourseHandler) ListInstitutionCourses(c *gin.Context) {
	var req services.ListCoursesRequest
	if !h.bindQuery(c, &req) {
		return
	}

	list, err := h.courses.ListByInstitution(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, list)
}

func (h *CourseHandler) ListMyCourses(c *gin.Context) {
	courses, err := h.courses.ListMine(c.Request.Context(), identity(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, courses)
}

// ===== ENROLLMENTS =====

func (h *CourseHandler) Enroll(c *gin.Context) {
	var req services.EnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, enrollment)
}

func (h *CourseHandler) BulkEnroll(c *gin.Context) {
	var req services.BulkEnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.enrollments.BulkEnroll(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, result)
}

// ImportRoster enrolls the rows of an uploaded XLSX roster
// @Summary Import roster
// @Tags enrollments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param file formData file true "XLSX with email, name and role columns"
// @Success 200 {object} Response{data=services.BulkEnrollResult}
// @Router /courses/{id}/enrollments/import [post]
func (h *CourseHandler) ImportRoster(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "falta el archivo de la lista")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, "no se pudo leer el archivo")
		return
	}
	defer file.Close()

	result, err := h.enrollments.ImportRoster(c.Request.Context(), identity(c), c.Param("id"), file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, result)
}

func (h *CourseHandler) UpdateEnrollmentRole(c *gin.Context) {
	var req services.UpdateEnrollmentRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	enrollment, err := h.enrollments.UpdateRole(c.Request.Context(), identity(c), c.Param("id"), c.Param("enrollment_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, enrollment)
}

func (h *CourseHandler) AssignTeam(c *gin.Context) {
	var req services.AssignTeamRequest
	if !h.bindJSON(c, &req) {
		return
	}

	enrollment, err := h.enrollments.AssignTeam(c.Request.Context(), identity(c), c.Param("id"), c.Param("enrollment_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, enrollment)
}

func (h *CourseHandler) RemoveEnrollment(c *gin.Context) {
	if err := h.enrollments.Remove(c.Request.Context(), identity(c), c.Param("id"), c.Param("enrollment_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	var req services.ListEnrollmentsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	enrollments, err := h.enrollments.List(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, enrollments)
}
