// Package exam holds the in-memory exam being edited and the pure operations
// the builder applies to it. Nothing here performs I/O.
package exam

import (
	"errors"
	"fmt"

	"github.com/ibnmalik/lms-admin/internal/model"
)

// Domain errors.
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option index out of range")
	ErrInvalidType      = errors.New("unknown question type")
)

// CopySuffix marks a duplicated question's text.
const CopySuffix = " (نسخة)"

// Model is the authoritative state of one exam under edit. Every mutator
// leaves Order contiguous (1..N) and the totals equal to the points sum.
type Model struct {
	exam model.Exam
	ids  IDGenerator
}

// New wraps a copy of e. A nil ids falls back to DefaultIDs.
func New(e model.Exam, ids IDGenerator) *Model {
	if ids == nil {
		ids = DefaultIDs
	}
	m := &Model{exam: e.Clone(), ids: ids}
	if m.exam.Type == "" {
		m.exam.Type = model.ExamTypeInternal
	}
	if m.exam.Questions == nil {
		m.exam.Questions = []model.Question{}
	}
	m.renumber()
	m.recompute()
	return m
}

// Exam returns a deep copy of the current exam.
func (m *Model) Exam() model.Exam {
	return m.exam.Clone()
}

// Question returns a copy of the question with the given id.
func (m *Model) Question(id string) (model.Question, error) {
	i := m.index(id)
	if i < 0 {
		return model.Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	return m.exam.Questions[i].Clone(), nil
}

// ExamPatch updates selected exam-level fields. Nil fields are left alone.
type ExamPatch struct {
	Title                  *string         `json:"title"`
	Type                   *model.ExamType `json:"type"`
	URL                    *string         `json:"url"`
	Duration               *int            `json:"duration" binding:"omitempty,min=0"`
	PassingScore           *int            `json:"passingScore" binding:"omitempty,min=0,max=100"`
	MigratedFromGoogleForm *bool           `json:"migratedFromGoogleForm"`
	MigrationNote          *string         `json:"migrationNote"`
}

// UpdateExam applies p to the exam.
func (m *Model) UpdateExam(p ExamPatch) {
	if p.Title != nil {
		m.exam.Title = *p.Title
	}
	if p.Type != nil {
		m.exam.Type = model.ParseExamType(string(*p.Type))
	}
	if p.URL != nil {
		m.exam.URL = *p.URL
	}
	if p.Duration != nil {
		m.exam.Duration = *p.Duration
	}
	if p.PassingScore != nil {
		m.exam.PassingScore = *p.PassingScore
	}
	if p.MigratedFromGoogleForm != nil {
		m.exam.MigratedFromGoogleForm = *p.MigratedFromGoogleForm
	}
	if p.MigrationNote != nil {
		m.exam.MigrationNote = *p.MigrationNote
	}
}

// AddQuestion appends a question of type t with type-appropriate defaults
// and returns its id.
func (m *Model) AddQuestion(t model.QuestionType) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	q := model.Question{
		ID:      m.ids.QuestionID(),
		Type:    t,
		Options: []model.Option{},
		Points:  model.DefaultQuestionPoints,
		Order:   len(m.exam.Questions) + 1,
	}
	switch t {
	case model.QuestionTypeMCQ:
		q.Options = []model.Option{
			{ID: m.ids.OptionID()},
			{ID: m.ids.OptionID()},
		}
		q.CorrectAnswer = model.OptionAnswer("")
	case model.QuestionTypeTrueFalse:
		q.CorrectAnswer = model.BoolAnswer(false)
	default:
		q.CorrectAnswer = model.NoAnswer()
	}
	m.exam.Questions = append(m.exam.Questions, q)
	m.recompute()
	return q.ID, nil
}

// QuestionPatch replaces selected fields of one question.
type QuestionPatch struct {
	QuestionText  *string              `json:"questionText"`
	Type          *model.QuestionType  `json:"type"`
	Points        *int                 `json:"points"`
	CorrectAnswer *model.CorrectAnswer `json:"correctAnswer"`
}

// UpdateQuestion applies p to the question with the given id. Fields are
// replaced independently; changing the type does not touch options or answer.
func (m *Model) UpdateQuestion(id string, p QuestionPatch) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	q := &m.exam.Questions[i]
	if p.QuestionText != nil {
		q.QuestionText = *p.QuestionText
	}
	if p.Type != nil {
		t, ok := model.ParseQuestionType(string(*p.Type))
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidType, *p.Type)
		}
		q.Type = t
	}
	if p.Points != nil {
		q.Points = *p.Points
	}
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = *p.CorrectAnswer
	}
	m.recompute()
	return nil
}

// AddOption appends an empty option to a question and returns its id.
func (m *Model) AddOption(questionID string) (string, error) {
	i := m.index(questionID)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	opt := model.Option{ID: m.ids.OptionID()}
	m.exam.Questions[i].Options = append(m.exam.Questions[i].Options, opt)
	return opt.ID, nil
}

// RemoveOption deletes the option at index. If that option was the correct
// answer, the answer is cleared so it never points at a missing option.
func (m *Model) RemoveOption(questionID string, index int) error {
	i := m.index(questionID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	q := &m.exam.Questions[i]
	if index < 0 || index >= len(q.Options) {
		return fmt.Errorf("%w: %d", ErrOptionNotFound, index)
	}
	removed := q.Options[index].ID
	q.Options = append(q.Options[:index:index], q.Options[index+1:]...)
	if ref, ok := q.CorrectAnswer.OptionRef(); ok && ref == removed {
		q.CorrectAnswer = model.OptionAnswer("")
	}
	return nil
}

// UpdateOptionText replaces the text of one option in place.
func (m *Model) UpdateOptionText(questionID string, index int, text string) error {
	i := m.index(questionID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}
	q := &m.exam.Questions[i]
	if index < 0 || index >= len(q.Options) {
		return fmt.Errorf("%w: %d", ErrOptionNotFound, index)
	}
	q.Options[index].Text = text
	return nil
}

// RemoveQuestion deletes a question and renumbers the rest.
func (m *Model) RemoveQuestion(id string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	qs := m.exam.Questions
	m.exam.Questions = append(qs[:i:i], qs[i+1:]...)
	m.renumber()
	m.recompute()
	return nil
}

// DuplicateQuestion appends a copy of a question with fresh ids for the
// question and each of its options, and returns the new question's id.
func (m *Model) DuplicateQuestion(id string) (string, error) {
	i := m.index(id)
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	src := m.exam.Questions[i]
	dup := src.Clone()
	dup.ID = m.ids.QuestionID()
	dup.QuestionText = src.QuestionText + CopySuffix
	dup.Order = len(m.exam.Questions) + 1

	remap := make(map[string]string, len(src.Options))
	for j := range dup.Options {
		newID := m.ids.OptionID()
		remap[dup.Options[j].ID] = newID
		dup.Options[j].ID = newID
	}
	if ref, ok := src.CorrectAnswer.OptionRef(); ok && ref != "" {
		dup.CorrectAnswer = model.OptionAnswer(remap[ref])
	}

	m.exam.Questions = append(m.exam.Questions, dup)
	m.recompute()
	return dup.ID, nil
}

// TotalMarks is the sum of every question's points.
func TotalMarks(questions []model.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}

func (m *Model) index(id string) int {
	for i, q := range m.exam.Questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) renumber() {
	for i := range m.exam.Questions {
		m.exam.Questions[i].Order = i + 1
	}
}

func (m *Model) recompute() {
	total := TotalMarks(m.exam.Questions)
	m.exam.TotalMarks = total
	m.exam.TotalPoints = total
}
