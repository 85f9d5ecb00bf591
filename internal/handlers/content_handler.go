package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/classroom-service/internal/services"
	"github.com/SAP-F-2025/classroom-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ContentHandler serves classes, assignments, their resources and submissions
type ContentHandler struct {
	BaseHandler
	classes     services.ClassService
	assignments services.AssignmentService
	submissions services.SubmissionService
}

func NewContentHandler(
	classes services.ClassService,
	assignments services.AssignmentService,
	submissions services.SubmissionService,
	logger utils.Logger,
) *ContentHandler {
	return &ContentHandler{
		BaseHandler: NewBaseHandler(logger),
		classes:     classes,
		assignments: assignments,
		submissions: submissions,
	}
}

// uploadFromForm builds an upload request from the "file" part. The caller
// must close the returned file.
func (h *ContentHandler) uploadFromForm(c *gin.Context) (*services.UploadFileRequest, multipart.File, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "falta el archivo")
		return nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		h.fail(c, http.StatusBadRequest, "no se pudo leer el archivo")
		return nil, nil, false
	}

	return &services.UploadFileRequest{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, true
}

// ===== CLASSES =====

// CreateClass adds a class to a course that has classes enabled
// @Summary Create class
// @Tags classes
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param body body services.CreateClassRequest true "Class data"
// @Success 201 {object} Response{data=models.Class}
// @Router /courses/{id}/classes [post]
func (h *ContentHandler) CreateClass(c *gin.Context) {
	var req services.CreateClassRequest
	if !h.bindJSON(c, &req) {
		return
	}

	class, err := h.classes.Create(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, class)
}

func (h *ContentHandler) ListClasses(c *gin.Context) {
	classes, err := h.classes.List(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, classes)
}

func (h *ContentHandler) GetClass(c *gin.Context) {
	class, err := h.classes.Get(c.Request.Context(), identity(c), c.Param("class_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, class)
}

func (h *ContentHandler) UpdateClass(c *gin.Context) {
	var req services.UpdateClassRequest
	if !h.bindJSON(c, &req) {
		return
	}

	class, err := h.classes.Update(c.Request.Context(), identity(c), c.Param("class_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, class)
}

func (h *ContentHandler) DeleteClass(c *gin.Context) {
	if err := h.classes.Delete(c.Request.Context(), identity(c), c.Param("class_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

func (h *ContentHandler) AddClassLink(c *gin.Context) {
	var req services.AddResourceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resource, err := h.classes.AddLink(c.Request.Context(), identity(c), c.Param("class_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, resource)
}

// UploadClassFile stores a file in the class resources bucket
// @Summary Upload class resource
// @Tags classes
// @Accept multipart/form-data
// @Produce json
// @Param class_id path string true "Class ID"
// @Param file formData file true "File"
// @Param title formData string false "Title, defaults to the filename"
// @Success 201 {object} Response{data=models.ClassResource}
// @Failure 502 {object} Response "Storage unavailable"
// @Router /classes/{class_id}/resources/upload [post]
func (h *ContentHandler) UploadClassFile(c *gin.Context) {
	req, file, ok := h.uploadFromForm(c)
	if !ok {
		return
	}
	defer file.Close()

	resource, err := h.classes.UploadFile(c.Request.Context(), identity(c), c.Param("class_id"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, resource)
}

func (h *ContentHandler) DeleteClassResource(c *gin.Context) {
	if err := h.classes.DeleteResource(c.Request.Context(), identity(c), c.Param("class_id"), c.Param("resource_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

// ===== ASSIGNMENTS =====

func (h *ContentHandler) CreateAssignment(c *gin.Context) {
	var req services.CreateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	assignment, err := h.assignments.Create(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, assignment)
}

func (h *ContentHandler) ListAssignments(c *gin.Context) {
	var req services.ListAssignmentsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	assignments, err := h.assignments.List(c.Request.Context(), identity(c), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, assignments)
}

func (h *ContentHandler) GetAssignment(c *gin.Context) {
	assignment, err := h.assignments.Get(c.Request.Context(), identity(c), c.Param("assignment_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, assignment)
}

func (h *ContentHandler) UpdateAssignment(c *gin.Context) {
	var req services.UpdateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	assignment, err := h.assignments.Update(c.Request.Context(), identity(c), c.Param("assignment_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, assignment)
}

func (h *ContentHandler) DeleteAssignment(c *gin.Context) {
	h.LogRequest(c, "Deleting assignment", "assignment_id", c.Param("assignment_id"))

	if err := h.assignments.Delete(c.Request.Context(), identity(c), c.Param("assignment_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

func (h *ContentHandler) AddAssignmentLink(c *gin.Context) {
	var req services.AddResourceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resource, err := h.assignments.AddLink(c.Request.Context(), identity(c), c.Param("assignment_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, resource)
}

func (h *ContentHandler) UploadAssignmentFile(c *gin.Context) {
	req, file, ok := h.uploadFromForm(c)
	if !ok {
		return
	}
	defer file.Close()

	resource, err := h.assignments.UploadFile(c.Request.Context(), identity(c), c.Param("assignment_id"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.created(c, resource)
}

func (h *ContentHandler) DeleteAssignmentResource(c *gin.Context) {
	if err := h.assignments.DeleteResource(c.Request.Context(), identity(c), c.Param("assignment_id"), c.Param("resource_id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, gin.H{"deleted": true})
}

// ===== SUBMISSIONS =====

// Submit accepts either a JSON body with text content or a multipart form
// with an optional "content" field and an optional "file" part
// @Summary Submit assignment
// @Tags submissions
// @Accept json,multipart/form-data
// @Produce json
// @Param assignment_id path string true "Assignment ID"
// @Success 200 {object} Response{data=models.AssignmentSubmission}
// @Failure 403 {object} Response "Caller is not a student of the course"
// @Router /assignments/{assignment_id}/submissions [post]
func (h *ContentHandler) Submit(c *gin.Context) {
	var req services.SubmitRequest

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if content, ok := c.GetPostForm("content"); ok {
			req.Content = &content
		}
		if _, err := c.FormFile("file"); err == nil {
			upload, file, ok := h.uploadFromForm(c)
			if !ok {
				return
			}
			defer file.Close()
			req.File = upload
		}
	} else if !h.bindJSON(c, &req) {
		return
	}

	submission, err := h.submissions.Submit(c.Request.Context(), identity(c), c.Param("assignment_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, submission)
}

func (h *ContentHandler) ListSubmissions(c *gin.Context) {
	submissions, err := h.submissions.List(c.Request.Context(), identity(c), c.Param("assignment_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, submissions)
}

func (h *ContentHandler) SetGrade(c *gin.Context) {
	var req services.SetGradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	submission, err := h.submissions.SetGrade(c.Request.Context(), identity(c), c.Param("assignment_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, submission)
}

// BulkGrade writes many grades at once; nothing is written when any entry is invalid
// @Summary Bulk grade
// @Tags submissions
// @Accept json
// @Produce json
// @Param assignment_id path string true "Assignment ID"
// @Param body body services.BulkGradeRequest true "Grades"
// @Success 200 {object} Response{data=services.BulkGradeResult}
// @Router /assignments/{assignment_id}/grades/bulk [put]
func (h *ContentHandler) BulkGrade(c *gin.Context) {
	var req services.BulkGradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.submissions.BulkGrade(c.Request.Context(), identity(c), c.Param("assignment_id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.ok(c, result)
}

// ExportGradebook streams the course gradebook as an XLSX attachment
func (h *ContentHandler) ExportGradebook(c *gin.Context) {
	export, err := h.submissions.ExportGradebook(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, xlsxContentType, export.Content)
}
