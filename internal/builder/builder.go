// Package builder is the exam list editor a course form embeds: it holds the
// course's exams, lets one of them be edited at a time, and hands the updated
// list to its owner only on an explicit save or a confirmed delete.
package builder

import (
	"errors"
	"fmt"
	"time"

	"github.com/ibnmalik/lms-admin/internal/exam"
	"github.com/ibnmalik/lms-admin/internal/model"
)

var (
	ErrNotEditing      = errors.New("no exam is being edited")
	ErrAlreadyEditing  = errors.New("another exam is being edited")
	ErrExamNotFound    = errors.New("exam not found")
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
	ErrInvalidExamType = errors.New("unknown exam type")
)

// Option configures a Builder.
type Option func(*Builder)

// WithIDs sets the id generator used for new exams, questions and options.
func WithIDs(ids exam.IDGenerator) Option {
	return func(b *Builder) { b.ids = ids }
}

// WithClock overrides the time source used to stamp createdAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// Builder is not safe for concurrent use; the owning form serializes access.
type Builder struct {
	exams    []model.Exam
	onChange func([]model.Exam)

	editing *exam.Model
	isNew   bool

	pendingDelete string

	ids exam.IDGenerator
	now func() time.Time
}

// New creates a builder over a copy of exams. onChange receives the full
// updated list after every successful save or delete; it may be nil.
func New(exams []model.Exam, onChange func([]model.Exam), opts ...Option) *Builder {
	b := &Builder{
		exams:    model.CloneExams(exams),
		onChange: onChange,
		ids:      exam.DefaultIDs,
		now:      time.Now,
	}
	if b.exams == nil {
		b.exams = []model.Exam{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Exams returns a copy of the saved exam list.
func (b *Builder) Exams() []model.Exam {
	return model.CloneExams(b.exams)
}

// Editing returns the exam under edit, or nil in list view.
func (b *Builder) Editing() *exam.Model {
	return b.editing
}

// IsNew reports whether the exam under edit has never been saved.
func (b *Builder) IsNew() bool {
	return b.editing != nil && b.isNew
}

// PendingDelete returns the id awaiting delete confirmation, if any.
func (b *Builder) PendingDelete() string {
	return b.pendingDelete
}

// StartNew opens an empty exam of the given type for editing.
func (b *Builder) StartNew(t model.ExamType) (*exam.Model, error) {
	if b.editing != nil {
		return nil, ErrAlreadyEditing
	}
	switch t {
	case model.ExamTypeInternal, model.ExamTypeGoogleForm, model.ExamTypeExternal, model.ExamTypeLink:
	case "":
		t = model.ExamTypeInternal
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidExamType, t)
	}
	b.editing = exam.New(model.Exam{Type: t}, b.ids)
	b.isNew = true
	return b.editing, nil
}

// Edit opens a copy of a saved exam. The saved list is untouched until Save.
func (b *Builder) Edit(examID string) (*exam.Model, error) {
	if b.editing != nil {
		return nil, ErrAlreadyEditing
	}
	i := b.index(examID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrExamNotFound, examID)
	}
	b.editing = exam.New(b.exams[i], b.ids)
	b.isNew = false
	return b.editing, nil
}

// Resume reopens an in-progress edit captured earlier, e.g. from a restored
// draft. It counts as an edit when e.ID names a saved exam, otherwise as new.
func (b *Builder) Resume(e model.Exam) (*exam.Model, error) {
	if b.editing != nil {
		return nil, ErrAlreadyEditing
	}
	b.editing = exam.New(e, b.ids)
	b.isNew = b.index(e.ID) < 0
	return b.editing, nil
}

// Cancel drops the in-progress edit and returns to list view.
func (b *Builder) Cancel() {
	b.editing = nil
	b.isNew = false
}

// Save validates the exam under edit and commits it to the list. On a
// validation failure it returns exam.ValidationErrors and nothing changes.
func (b *Builder) Save() (model.Exam, error) {
	if b.editing == nil {
		return model.Exam{}, ErrNotEditing
	}

	e := b.editing.Exam()
	if err := exam.Validate(e); err != nil {
		return model.Exam{}, err
	}

	if !e.Type.HasQuestions() {
		e.Questions = []model.Question{}
	}
	e.TotalMarks = exam.TotalMarks(e.Questions)
	e.TotalPoints = e.TotalMarks

	i := b.index(e.ID)
	if b.isNew || e.ID == "" || i < 0 {
		if e.ID == "" {
			e.ID = b.ids.ExamID()
		}
		if e.CreatedAt == nil {
			now := b.now().UTC()
			e.CreatedAt = &now
		}
		b.exams = append(b.exams, e)
	} else {
		if e.CreatedAt == nil {
			if prev := b.exams[i].CreatedAt; prev != nil {
				t := *prev
				e.CreatedAt = &t
			} else {
				now := b.now().UTC()
				e.CreatedAt = &now
			}
		}
		b.exams[i] = e
	}

	b.Cancel()
	b.emit()
	return e.Clone(), nil
}

// RequestDelete marks an exam for deletion. Nothing is removed until
// ConfirmDelete.
func (b *Builder) RequestDelete(examID string) error {
	if b.index(examID) < 0 {
		return fmt.Errorf("%w: %s", ErrExamNotFound, examID)
	}
	b.pendingDelete = examID
	return nil
}

// CancelDelete forgets a pending delete request.
func (b *Builder) CancelDelete() {
	b.pendingDelete = ""
}

// ConfirmDelete removes the pending exam and emits the filtered list.
func (b *Builder) ConfirmDelete() error {
	id := b.pendingDelete
	if id == "" {
		return ErrNoPendingDelete
	}
	b.pendingDelete = ""

	i := b.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrExamNotFound, id)
	}
	b.exams = append(b.exams[:i], b.exams[i+1:]...)
	if b.editing != nil && b.editing.Exam().ID == id {
		b.Cancel()
	}
	b.emit()
	return nil
}

func (b *Builder) emit() {
	if b.onChange != nil {
		b.onChange(model.CloneExams(b.exams))
	}
}

func (b *Builder) index(id string) int {
	if id == "" {
		return -1
	}
	for i, e := range b.exams {
		if e.ID == id {
			return i
		}
	}
	return -1
}
