package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/ibnmalik/lms-admin/internal/validator"
	"github.com/rs/zerolog"
)

// CourseHandler proxies course reads and one-shot course actions to the
// course API.
type CourseHandler struct {
	api *courseapi.Client
	log zerolog.Logger
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(api *courseapi.Client, log zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		api: api,
		log: log.With().Str("component", "course_handler").Logger(),
	}
}

// ListCourses godoc
// GET /api/v1/admin/courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.api.List(c.Request.Context())
	if err != nil {
		failFor(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"courses": courses})
}

// GetCourse godoc
// GET /api/v1/admin/courses/:course_id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.api.Get(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		failFor(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// DeleteCourse godoc
// DELETE /api/v1/admin/courses/:course_id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := h.api.Delete(c.Request.Context(), c.Param("course_id")); err != nil {
		failFor(c, h.log, err)
		return
	}
	response.NoContent(c)
}

type setStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetCourseStatus godoc
// PATCH /api/v1/admin/courses/:course_id/status
// Activates or deactivates a course.
func (h *CourseHandler) SetCourseStatus(c *gin.Context) {
	var req setStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.api.SetStatus(c.Request.Context(), c.Param("course_id"), *req.IsActive)
	if err != nil {
		failFor(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course": course})
}
