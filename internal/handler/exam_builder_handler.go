package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/builder"
	"github.com/ibnmalik/lms-admin/internal/exam"
	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/ibnmalik/lms-admin/internal/service"
	"github.com/ibnmalik/lms-admin/internal/validator"
	"github.com/rs/zerolog"
)

// ExamBuilderHandler exposes a form's exam builder. Question and option
// routes act on the exam currently open for editing.
type ExamBuilderHandler struct {
	forms *service.CourseFormService
	log   zerolog.Logger
}

// NewExamBuilderHandler creates a new ExamBuilderHandler.
func NewExamBuilderHandler(forms *service.CourseFormService, log zerolog.Logger) *ExamBuilderHandler {
	return &ExamBuilderHandler{
		forms: forms,
		log:   log.With().Str("component", "exam_builder_handler").Logger(),
	}
}

type startExamRequest struct {
	Type model.ExamType `json:"type"`
}

// StartExam godoc
// POST /api/v1/admin/course-forms/:form_id/exams
// Opens a new exam in the builder. An empty type means an internal exam.
func (h *ExamBuilderHandler) StartExam(c *gin.Context) {
	var req startExamRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}
	h.run(c, http.StatusCreated, func(b *builder.Builder) (gin.H, error) {
		_, err := b.StartNew(req.Type)
		return nil, err
	})
}

// EditExam godoc
// POST /api/v1/admin/course-forms/:form_id/exams/:exam_id/edit
func (h *ExamBuilderHandler) EditExam(c *gin.Context) {
	h.run(c, http.StatusOK, func(b *builder.Builder) (gin.H, error) {
		_, err := b.Edit(c.Param("exam_id"))
		return nil, err
	})
}

// GetEditing godoc
// GET /api/v1/admin/course-forms/:form_id/exams/editing
func (h *ExamBuilderHandler) GetEditing(c *gin.Context) {
	form, ok := lookupForm(c, h.forms, h.log)
	if !ok {
		return
	}
	view := form.View()
	if view.Editing == nil {
		response.Fail(c, http.StatusConflict, response.ErrNotEditing)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": view.Editing, "isNew": view.EditingIsNew})
}

// UpdateEditing godoc
// PATCH /api/v1/admin/course-forms/:form_id/exams/editing
// Updates exam-level fields of the exam being edited.
func (h *ExamBuilderHandler) UpdateEditing(c *gin.Context) {
	var patch exam.ExamPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.edit(c, http.StatusOK, func(m *exam.Model) (gin.H, error) {
		m.UpdateExam(patch)
		return nil, nil
	})
}

// SaveEditing godoc
// POST /api/v1/admin/course-forms/:form_id/exams/editing/save
// Validates and saves the exam being edited. Validation failures keep the
// exam open and list every problem.
func (h *ExamBuilderHandler) SaveEditing(c *gin.Context) {
	h.run(c, http.StatusOK, func(b *builder.Builder) (gin.H, error) {
		saved, err := b.Save()
		if err != nil {
			return nil, err
		}
		return gin.H{"exam": saved}, nil
	})
}

// CancelEditing godoc
// POST /api/v1/admin/course-forms/:form_id/exams/editing/cancel
func (h *ExamBuilderHandler) CancelEditing(c *gin.Context) {
	h.run(c, http.StatusOK, func(b *builder.Builder) (gin.H, error) {
		b.Cancel()
		return nil, nil
	})
}

type addQuestionRequest struct {
	Type model.QuestionType `json:"type" binding:"required"`
}

// AddQuestion godoc
// POST /api/v1/admin/course-forms/:form_id/exams/editing/questions
func (h *ExamBuilderHandler) AddQuestion(c *gin.Context) {
	var req addQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.edit(c, http.StatusCreated, func(m *exam.Model) (gin.H, error) {
		qt, ok := model.ParseQuestionType(string(req.Type))
		if !ok {
			qt = req.Type
		}
		id, err := m.AddQuestion(qt)
		return gin.H{"questionId": id}, err
	})
}

// UpdateQuestion godoc
// PATCH /api/v1/admin/course-forms/:form_id/exams/editing/questions/:question_id
func (h *ExamBuilderHandler) UpdateQuestion(c *gin.Context) {
	var patch exam.QuestionPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.edit(c, http.StatusOK, func(m *exam.Model) (gin.H, error) {
		return nil, m.UpdateQuestion(c.Param("question_id"), patch)
	})
}

// RemoveQuestion godoc
// DELETE /api/v1/admin/course-forms/:form_id/exams/editing/questions/:question_id
func (h *ExamBuilderHandler) RemoveQuestion(c *gin.Context) {
	h.edit(c, http.StatusOK, func(m *exam.Model) (gin.H, error) {
		return nil, m.RemoveQuestion(c.Param("question_id"))
	})
}

// DuplicateQuestion godoc
// POST /api/v1/admin/course-forms/:form_id/exams/editing/questions/:question_id/duplicate
func (h *ExamBuilderHandler) DuplicateQuestion(c *gin.Context) {
	h.edit(c, http.StatusCreated, func(m *exam.Model) (gin.H, error) {
		id, err := m.DuplicateQuestion(c.Param("question_id"))
		return gin.H{"questionId": id}, err
	})
}

// AddOption godoc
// POST /api/v1/admin/course-forms/:form_id/exams/editing/questions/:question_id/options
func (h *ExamBuilderHandler) AddOption(c *gin.Context) {
	h.edit(c, http.StatusCreated, func(m *exam.Model) (gin.H, error) {
		id, err := m.AddOption(c.Param("question_id"))
		return gin.H{"optionId": id}, err
	})
}

type optionTextRequest struct {
	Text string `json:"text"`
}

// UpdateOption godoc
// PATCH /api/v1/admin/course-forms/:form_id/exams/editing/questions/:question_id/options/:index
func (h *ExamBuilderHandler) UpdateOption(c *gin.Context) {
	index, ok := optionIndex(c)
	if !ok {
		return
	}
	var req optionTextRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.edit(c, http.StatusOK, func(m *exam.Model) (gin.H, error) {
		return nil, m.UpdateOptionText(c.Param("question_id"), index, req.Text)
	})
}

// RemoveOption godoc
// DELETE /api/v1/admin/course-forms/:form_id/exams/editing/questions/:question_id/options/:index
// Clears the correct answer when it pointed at the removed option.
func (h *ExamBuilderHandler) RemoveOption(c *gin.Context) {
	index, ok := optionIndex(c)
	if !ok {
		return
	}
	h.edit(c, http.StatusOK, func(m *exam.Model) (gin.H, error) {
		return nil, m.RemoveOption(c.Param("question_id"), index)
	})
}

// RequestDelete godoc
// POST /api/v1/admin/course-forms/:form_id/exams/:exam_id/delete
// Marks an exam for deletion. Nothing is removed until confirmed.
func (h *ExamBuilderHandler) RequestDelete(c *gin.Context) {
	h.run(c, http.StatusOK, func(b *builder.Builder) (gin.H, error) {
		return nil, b.RequestDelete(c.Param("exam_id"))
	})
}

// ConfirmDelete godoc
// POST /api/v1/admin/course-forms/:form_id/exams/delete/confirm
func (h *ExamBuilderHandler) ConfirmDelete(c *gin.Context) {
	h.run(c, http.StatusOK, func(b *builder.Builder) (gin.H, error) {
		return nil, b.ConfirmDelete()
	})
}

// CancelDelete godoc
// POST /api/v1/admin/course-forms/:form_id/exams/delete/cancel
func (h *ExamBuilderHandler) CancelDelete(c *gin.Context) {
	h.run(c, http.StatusOK, func(b *builder.Builder) (gin.H, error) {
		b.CancelDelete()
		return nil, nil
	})
}

// run applies fn to the form's builder and responds with the form view plus
// whatever fn returned.
func (h *ExamBuilderHandler) run(c *gin.Context, status int, fn func(b *builder.Builder) (gin.H, error)) {
	form, ok := lookupForm(c, h.forms, h.log)
	if !ok {
		return
	}

	var extra gin.H
	view, err := form.Builder(func(b *builder.Builder) error {
		var err error
		extra, err = fn(b)
		return err
	})
	if err != nil {
		failFor(c, h.log, err)
		return
	}

	body := gin.H{"form": view}
	for k, v := range extra {
		body[k] = v
	}
	response.Success(c, status, body)
}

// edit is run against the exam currently open in the builder.
func (h *ExamBuilderHandler) edit(c *gin.Context, status int, fn func(m *exam.Model) (gin.H, error)) {
	h.run(c, status, func(b *builder.Builder) (gin.H, error) {
		m := b.Editing()
		if m == nil {
			return nil, builder.ErrNotEditing
		}
		return fn(m)
	})
}

func optionIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return 0, false
	}
	return index, true
}
