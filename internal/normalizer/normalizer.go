// Package normalizer converts exams between the shape the builder edits and
// the shape the course API stores. It is the only place loosely typed legacy
// values (index answers, "true" strings, string points) are interpreted.
package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ibnmalik/lms-admin/internal/exam"
	"github.com/ibnmalik/lms-admin/internal/model"
)

// Messages for answers that could not be resolved.
const (
	MsgUnresolvedAnswer = "لم يتم تحديد الإجابة الصحيحة"
	MsgUnknownType      = "نوع السؤال غير معروف"
)

// QuestionError names one question that cannot be sent to the server.
type QuestionError struct {
	ExamTitle string `json:"examTitle"`
	Question  int    `json:"question"`
	Reason    string `json:"reason"`
}

func (e QuestionError) Error() string {
	return fmt.Sprintf("الاختبار \"%s\" - السؤال %d: %s", e.ExamTitle, e.Question, e.Reason)
}

// Errors is returned by UIToServer when any question is unusable.
type Errors []QuestionError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, qe := range e {
		msgs[i] = qe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Normalizer carries the id generator used for options that arrive without ids.
type Normalizer struct {
	ids exam.IDGenerator
}

// New creates a Normalizer. A nil ids falls back to exam.DefaultIDs.
func New(ids exam.IDGenerator) *Normalizer {
	if ids == nil {
		ids = exam.DefaultIDs
	}
	return &Normalizer{ids: ids}
}

var std = New(nil)

// UIToServer normalizes with the default id generator.
func UIToServer(e model.LooseExam) (model.ServerExam, error) { return std.UIToServer(e) }

// ServerToUI converts with the default id generator.
func ServerToUI(e model.LooseExam) model.Exam { return std.ServerToUI(e) }

// UIToServer produces the strict server shape. The returned exam is complete
// even when err is non-nil, but it must not be submitted: err then lists every
// multiple-choice or true/false question whose answer could not be resolved.
func (n *Normalizer) UIToServer(e model.LooseExam) (model.ServerExam, error) {
	out := model.ServerExam{
		ID:                     e.ID,
		Title:                  e.Title,
		Type:                   model.ParseExamType(e.Type),
		URL:                    e.URL,
		Duration:               e.Duration.Value,
		PassingScore:           e.PassingScore.Value,
		MigratedFromGoogleForm: e.MigratedFromGoogleForm,
		MigrationNote:          e.MigrationNote,
		CreatedAt:              e.CreatedAt,
		Questions:              []model.ServerQuestion{},
	}
	if !out.Type.HasQuestions() {
		return out, nil
	}

	var errs Errors
	for i, lq := range e.Questions {
		sq, reason := n.questionToServer(lq)
		sq.Order = i + 1
		if reason != "" {
			errs = append(errs, QuestionError{ExamTitle: e.Title, Question: i + 1, Reason: reason})
		}
		out.Questions = append(out.Questions, sq)
		out.TotalMarks += sq.Points
	}
	out.TotalPoints = out.TotalMarks

	if len(errs) > 0 {
		return out, errs
	}
	return out, nil
}

func (n *Normalizer) questionToServer(lq model.LooseQuestion) (model.ServerQuestion, string) {
	points := resolvePoints(lq)
	sq := model.ServerQuestion{
		ID:           lq.ID,
		QuestionText: lq.QuestionText,
		Options:      []model.ServerOption{},
		Points:       points,
		Marks:        points,
	}
	if sq.ID == "" {
		sq.ID = n.ids.QuestionID()
	}

	qt, ok := model.ParseQuestionType(lq.Type)
	if !ok {
		sq.Type = model.QuestionType(lq.Type)
		return sq, MsgUnknownType
	}
	sq.Type = qt

	switch qt {
	case model.QuestionTypeMCQ:
		all := n.withIDs(lq.Options)
		kept := make(map[string]bool, len(all))
		for _, o := range all {
			text := strings.TrimSpace(o.Label())
			if text == "" {
				continue
			}
			sq.Options = append(sq.Options, model.ServerOption{ID: o.ID, Text: text, OptionText: text})
			kept[o.ID] = true
		}
		ref, ok := resolveOptionRef(lq.CorrectAnswer, all)
		if !ok || !kept[ref] {
			return sq, MsgUnresolvedAnswer
		}
		sq.CorrectAnswer = ref
	case model.QuestionTypeTrueFalse:
		if lq.CorrectAnswer == nil {
			return sq, MsgUnresolvedAnswer
		}
		sq.CorrectAnswer = coerceBool(lq.CorrectAnswer)
	case model.QuestionTypeEssay:
		sq.CorrectAnswer = nil
	}
	return sq, ""
}

// ServerToUI turns a stored exam into the builder's typed model. It accepts
// documents written by older clients: options without optionText (or without
// text), points stored only as marks, and missing or partial ordering.
func (n *Normalizer) ServerToUI(e model.LooseExam) model.Exam {
	out := model.Exam{
		ID:                     e.ID,
		Title:                  e.Title,
		Type:                   model.ParseExamType(e.Type),
		URL:                    e.URL,
		Duration:               e.Duration.Value,
		PassingScore:           e.PassingScore.Value,
		MigratedFromGoogleForm: e.MigratedFromGoogleForm,
		MigrationNote:          e.MigrationNote,
		CreatedAt:              e.CreatedAt,
		Questions:              []model.Question{},
	}

	questions := append([]model.LooseQuestion(nil), e.Questions...)
	if allOrdered(questions) {
		sort.SliceStable(questions, func(i, j int) bool {
			return questions[i].Order.Value < questions[j].Order.Value
		})
	}

	for i, lq := range questions {
		q := n.questionToUI(lq)
		q.Order = i + 1
		out.Questions = append(out.Questions, q)
	}
	out.TotalMarks = exam.TotalMarks(out.Questions)
	out.TotalPoints = out.TotalMarks
	return out
}

func (n *Normalizer) questionToUI(lq model.LooseQuestion) model.Question {
	q := model.Question{
		ID:           lq.ID,
		QuestionText: lq.QuestionText,
		Options:      []model.Option{},
		Points:       resolvePoints(lq),
	}
	if q.ID == "" {
		q.ID = n.ids.QuestionID()
	}

	qt, ok := model.ParseQuestionType(lq.Type)
	if !ok {
		qt = model.QuestionTypeMCQ
	}
	q.Type = qt

	switch qt {
	case model.QuestionTypeMCQ:
		all := n.withIDs(lq.Options)
		for _, o := range all {
			q.Options = append(q.Options, model.Option{ID: o.ID, Text: o.Label()})
		}
		ref, _ := resolveOptionRef(lq.CorrectAnswer, all)
		q.CorrectAnswer = model.OptionAnswer(ref)
	case model.QuestionTypeTrueFalse:
		q.CorrectAnswer = model.BoolAnswer(coerceBool(lq.CorrectAnswer))
	default:
		q.CorrectAnswer = model.NoAnswer()
	}
	return q
}

// FromModel exposes a typed exam in the loose shape both directions accept.
func FromModel(e model.Exam) model.LooseExam {
	out := model.LooseExam{
		ID:                     e.ID,
		Title:                  e.Title,
		Type:                   string(e.Type),
		URL:                    e.URL,
		Duration:               model.Int(e.Duration),
		PassingScore:           model.Int(e.PassingScore),
		MigratedFromGoogleForm: e.MigratedFromGoogleForm,
		MigrationNote:          e.MigrationNote,
		CreatedAt:              e.CreatedAt,
	}
	for _, q := range e.Questions {
		lq := model.LooseQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Type:         string(q.Type),
			Points:       model.Int(q.Points),
			Order:        model.Int(q.Order),
		}
		for _, o := range q.Options {
			lq.Options = append(lq.Options, model.LooseOption{ID: o.ID, Text: o.Text})
		}
		switch q.CorrectAnswer.Kind() {
		case model.AnswerBool:
			v, _ := q.CorrectAnswer.Bool()
			lq.CorrectAnswer = v
		case model.AnswerOption:
			ref, _ := q.CorrectAnswer.OptionRef()
			if ref != "" {
				lq.CorrectAnswer = ref
			}
		}
		out.Questions = append(out.Questions, lq)
	}
	return out
}

// FromServer exposes a normalized exam in the loose shape.
func FromServer(e model.ServerExam) model.LooseExam {
	out := model.LooseExam{
		ID:                     e.ID,
		Title:                  e.Title,
		Type:                   string(e.Type),
		URL:                    e.URL,
		Duration:               model.Int(e.Duration),
		PassingScore:           model.Int(e.PassingScore),
		MigratedFromGoogleForm: e.MigratedFromGoogleForm,
		MigrationNote:          e.MigrationNote,
		CreatedAt:              e.CreatedAt,
	}
	for _, q := range e.Questions {
		lq := model.LooseQuestion{
			ID:            q.ID,
			QuestionText:  q.QuestionText,
			Type:          string(q.Type),
			CorrectAnswer: q.CorrectAnswer,
			Points:        model.Int(q.Points),
			Marks:         model.Int(q.Marks),
			Order:         model.Int(q.Order),
		}
		for _, o := range q.Options {
			lq.Options = append(lq.Options, model.LooseOption{ID: o.ID, Text: o.Text, OptionText: o.OptionText})
		}
		out.Questions = append(out.Questions, lq)
	}
	return out
}

func (n *Normalizer) withIDs(opts []model.LooseOption) []model.LooseOption {
	out := make([]model.LooseOption, len(opts))
	for i, o := range opts {
		if o.ID == "" {
			o.ID = n.ids.OptionID()
		}
		out[i] = o
	}
	return out
}

// resolvePoints prefers points, then marks, then the default, and never
// returns less than 1.
func resolvePoints(lq model.LooseQuestion) int {
	v := model.DefaultQuestionPoints
	switch {
	case lq.Points.Valid && lq.Points.Value != 0:
		v = lq.Points.Value
	case lq.Marks.Valid && lq.Marks.Value != 0:
		v = lq.Marks.Value
	}
	if v < 1 {
		v = 1
	}
	return v
}

// resolveOptionRef maps a multiple-choice answer onto an option id. Strings
// equal to an option id win; numbers (or numeric strings) are legacy indexes.
func resolveOptionRef(answer any, opts []model.LooseOption) (string, bool) {
	index := -1
	switch v := answer.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return "", false
		}
		for _, o := range opts {
			if o.ID == s {
				return s, true
			}
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return "", false
		}
		index = n
	case float64:
		if v != math.Trunc(v) {
			return "", false
		}
		index = int(v)
	case int:
		index = v
	default:
		return "", false
	}
	if index < 0 || index >= len(opts) {
		return "", false
	}
	return opts[index].ID, true
}

// coerceBool reads a true/false answer from any of the shapes older clients
// stored. Anything unrecognized is false.
func coerceBool(answer any) bool {
	switch v := answer.(type) {
	case bool:
		return v
	case float64:
		return v == 1
	case int:
		return v == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "صحيح", "صح", "نعم":
			return true
		}
	}
	return false
}

func allOrdered(qs []model.LooseQuestion) bool {
	for _, q := range qs {
		if !q.Order.Valid {
			return false
		}
	}
	return len(qs) > 0
}
