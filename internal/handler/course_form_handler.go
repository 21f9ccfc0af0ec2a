package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/middleware"
	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/ibnmalik/lms-admin/internal/service"
	"github.com/ibnmalik/lms-admin/internal/validator"
	"github.com/rs/zerolog"
)

// CourseFormHandler drives course create/edit forms.
type CourseFormHandler struct {
	forms *service.CourseFormService
	media *service.MediaService
	log   zerolog.Logger
}

// NewCourseFormHandler creates a new CourseFormHandler.
func NewCourseFormHandler(forms *service.CourseFormService, media *service.MediaService, log zerolog.Logger) *CourseFormHandler {
	return &CourseFormHandler{
		forms: forms,
		media: media,
		log:   log.With().Str("component", "course_form_handler").Logger(),
	}
}

type openFormRequest struct {
	Mode     service.FormMode `json:"mode" binding:"required,oneof=create edit"`
	CourseID string           `json:"courseId" binding:"required_if=Mode edit"`
}

// OpenForm godoc
// POST /api/v1/admin/course-forms
// Opens a create form, or an edit form for courseId. An open form for the
// same course is returned as is.
func (h *CourseFormHandler) OpenForm(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req openFormRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var (
		form *service.CourseForm
		err  error
	)
	if req.Mode == service.FormModeEdit {
		form, err = h.forms.OpenEdit(c.Request.Context(), claims.UserID, req.CourseID)
	} else {
		form, err = h.forms.OpenCreate(c.Request.Context(), claims.UserID)
	}
	if err != nil {
		failFor(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"form": form.View()})
}

// GetForm godoc
// GET /api/v1/admin/course-forms/:form_id
func (h *CourseFormHandler) GetForm(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"form": form.View()})
}

// CloseForm godoc
// DELETE /api/v1/admin/course-forms/:form_id
// Closes the form. Its draft stays available for the next open.
func (h *CourseFormHandler) CloseForm(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	form.Close()
	response.NoContent(c)
}

// RestoreDraft godoc
// POST /api/v1/admin/course-forms/:form_id/draft/restore
func (h *CourseFormHandler) RestoreDraft(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	h.respond(c)(form.RestoreDraft(c.Request.Context()))
}

// DiscardDraft godoc
// POST /api/v1/admin/course-forms/:form_id/draft/discard
func (h *CourseFormHandler) DiscardDraft(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	h.respond(c)(form.DiscardDraft(c.Request.Context()))
}

// SaveDraft godoc
// POST /api/v1/admin/course-forms/:form_id/draft/save
// Writes the draft now instead of at the next autosave tick.
func (h *CourseFormHandler) SaveDraft(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	if err := form.SaveDraftNow(c.Request.Context()); err != nil {
		failFor(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"form": form.View()})
}

// UpdateCourse godoc
// PATCH /api/v1/admin/course-forms/:form_id/course
// Applies a partial update to the course fields.
func (h *CourseFormHandler) UpdateCourse(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var patch model.CoursePatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c)(form.UpdateCourse(patch))
}

type setVideosRequest struct {
	Videos []model.Video `json:"videos" binding:"dive"`
}

// SetVideos godoc
// PUT /api/v1/admin/course-forms/:form_id/videos
// Replaces the video list. Order follows the array.
func (h *CourseFormHandler) SetVideos(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	var req setVideosRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c)(form.SetVideos(req.Videos))
}

type imageURLRequest struct {
	ImageURL string `json:"imageUrl" binding:"omitempty,url"`
}

// SetImage godoc
// PUT /api/v1/admin/course-forms/:form_id/image
// Accepts a multipart "image" file, or JSON {"imageUrl": "..."} pointing at
// an already hosted image.
func (h *CourseFormHandler) SetImage(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("image")
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
			return
		}
		img, err := h.media.ReadImage(header)
		if err != nil {
			failFor(c, h.log, err)
			return
		}
		h.respond(c)(form.SetImage(img))
		return
	}

	var req imageURLRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c)(form.SetImageURL(req.ImageURL))
}

// Submit godoc
// POST /api/v1/admin/course-forms/:form_id/submit
// Validates the form and its exams, then creates or updates the course.
// The draft is cleared only when the course API accepts it.
func (h *CourseFormHandler) Submit(c *gin.Context) {
	form, ok := h.form(c)
	if !ok {
		return
	}
	course, err := form.Submit(c.Request.Context())
	if err != nil {
		failFor(c, h.log, err)
		return
	}
	status := http.StatusOK
	if form.Mode == service.FormModeCreate {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"course": course})
}

// form resolves :form_id for the calling admin, writing the error response
// when it cannot.
func (h *CourseFormHandler) form(c *gin.Context) (*service.CourseForm, bool) {
	return lookupForm(c, h.forms, h.log)
}

// respond returns a sink for the (view, error) pair form mutators return.
func (h *CourseFormHandler) respond(c *gin.Context) func(service.FormView, error) {
	return func(view service.FormView, err error) {
		if err != nil {
			failFor(c, h.log, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"form": view})
	}
}

func lookupForm(c *gin.Context, forms *service.CourseFormService, log zerolog.Logger) (*service.CourseForm, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	form, err := forms.Get(claims.UserID, c.Param("form_id"))
	if err != nil {
		failFor(c, log, err)
		return nil, false
	}
	return form, true
}
