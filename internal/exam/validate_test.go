package exam

import (
	"errors"
	"strings"
	"testing"

	"github.com/ibnmalik/lms-admin/internal/model"
)

func mcq(text string, answer model.CorrectAnswer, opts ...string) model.Question {
	q := model.Question{
		ID:            "q",
		QuestionText:  text,
		Type:          model.QuestionTypeMCQ,
		CorrectAnswer: answer,
		Points:        10,
	}
	for i, o := range opts {
		q.Options = append(q.Options, model.Option{ID: string(rune('a' + i)), Text: o})
	}
	return q
}

func validationErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	if err == nil {
		return nil
	}
	var ve ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	return ve
}

func hasError(ve ValidationErrors, field string, question int, msg string) bool {
	for _, e := range ve {
		if e.Field == field && e.Question == question && e.Message == msg {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		exam     model.Exam
		field    string
		question int
		msg      string
	}{
		{
			name:  "missing title",
			exam:  model.Exam{Type: model.ExamTypeInternal, Questions: []model.Question{mcq("x", model.OptionAnswer("a"), "1", "2")}},
			field: "title", msg: MsgTitleRequired,
		},
		{
			name:  "no questions",
			exam:  model.Exam{Title: "Quiz", Type: model.ExamTypeInternal},
			field: "questions", msg: MsgNoQuestions,
		},
		{
			name: "empty question text",
			exam: model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{
				mcq("ok", model.OptionAnswer("a"), "1", "2"),
				mcq("  ", model.OptionAnswer("a"), "1", "2"),
			}},
			field: "questionText", question: 2, msg: MsgTextRequired,
		},
		{
			name:  "mcq with one option",
			exam:  model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{mcq("x", model.OptionAnswer("a"), "1")}},
			field: "options", question: 1, msg: MsgTooFewOptions,
		},
		{
			name:  "mcq with a blank option",
			exam:  model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{mcq("x", model.OptionAnswer("b"), "", "4")}},
			field: "options", question: 1, msg: MsgTooFewOptions,
		},
		{
			name:  "mcq answer on a blank option",
			exam:  model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{mcq("x", model.OptionAnswer("a"), " ", "4", "5")}},
			field: "correctAnswer", question: 1, msg: MsgAnswerStale,
		},
		{
			name:  "mcq without answer",
			exam:  model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{mcq("x", model.OptionAnswer(""), "1", "2")}},
			field: "correctAnswer", question: 1, msg: MsgAnswerMissing,
		},
		{
			name:  "mcq with stale answer",
			exam:  model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{mcq("x", model.OptionAnswer("zz"), "1", "2")}},
			field: "correctAnswer", question: 1, msg: MsgAnswerStale,
		},
		{
			name: "true_false without boolean",
			exam: model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{
				{QuestionText: "sky is blue", Type: model.QuestionTypeTrueFalse, Points: 1},
			}},
			field: "correctAnswer", question: 1, msg: MsgTrueFalseAnswer,
		},
		{
			name: "zero points",
			exam: model.Exam{Title: "Quiz", Type: model.ExamTypeInternal, Questions: []model.Question{
				{QuestionText: "essay", Type: model.QuestionTypeEssay, Points: 0},
			}},
			field: "points", question: 1, msg: MsgPointsPositive,
		},
		{
			name:  "link exam without url",
			exam:  model.Exam{Title: "Form", Type: model.ExamTypeGoogleForm},
			field: "url", msg: MsgURLRequired,
		},
		{
			name:  "passing score out of range",
			exam:  model.Exam{Title: "Form", Type: model.ExamTypeLink, URL: "https://x", PassingScore: 120},
			field: "passingScore", msg: MsgInvalidPassingPct,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ve := validationErrors(t, Validate(tc.exam))
			if !hasError(ve, tc.field, tc.question, tc.msg) {
				t.Fatalf("expected %s/%d %q, got %v", tc.field, tc.question, tc.msg, ve)
			}
		})
	}
}

func TestValidateAcceptsValidExam(t *testing.T) {
	e := model.Exam{
		Title: "Quiz 1",
		Type:  model.ExamTypeInternal,
		Questions: []model.Question{
			mcq("2+2=?", model.OptionAnswer("b"), "3", "4"),
			{QuestionText: "sky is blue", Type: model.QuestionTypeTrueFalse, CorrectAnswer: model.BoolAnswer(false), Points: 2},
			{QuestionText: "explain", Type: model.QuestionTypeEssay, Points: 5},
		},
	}
	if err := Validate(e); err != nil {
		t.Fatalf("expected valid exam, got %v", err)
	}

	link := model.Exam{Title: "Form", Type: model.ExamTypeGoogleForm, URL: "https://forms.example/1"}
	if err := Validate(link); err != nil {
		t.Fatalf("expected valid link exam, got %v", err)
	}
}

func TestRemovingAnsweredOptionBlocksSave(t *testing.T) {
	m := New(model.Exam{Title: "Quiz"}, &seqIDs{})
	qid, _ := m.AddQuestion(model.QuestionTypeMCQ)
	m.UpdateQuestion(qid, QuestionPatch{QuestionText: ptr("2+2=?")})
	m.UpdateOptionText(qid, 0, "3")
	m.UpdateOptionText(qid, 1, "4")
	q, _ := m.Question(qid)
	m.UpdateQuestion(qid, QuestionPatch{CorrectAnswer: ptr(model.OptionAnswer(q.Options[1].ID))})

	if err := m.RemoveOption(qid, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	q, _ = m.Question(qid)
	if ref, _ := q.CorrectAnswer.OptionRef(); ref != "" {
		t.Fatalf("answer = %q, want empty", ref)
	}

	ve := validationErrors(t, Validate(m.Exam()))
	if !hasError(ve, "correctAnswer", 1, MsgAnswerMissing) {
		t.Fatalf("expected missing answer error, got %v", ve)
	}
	if !strings.Contains(ve.Error(), "السؤال 1") {
		t.Fatalf("message does not name the question: %s", ve.Error())
	}
}

func TestValidationErrorsFields(t *testing.T) {
	ve := ValidationErrors{
		{Field: "title", Message: MsgTitleRequired},
		{Field: "correctAnswer", Question: 2, Message: MsgAnswerMissing},
	}
	fields := ve.Fields()
	if fields["title"] != MsgTitleRequired {
		t.Fatalf("title = %q", fields["title"])
	}
	if _, ok := fields["questions[2].correctAnswer"]; !ok {
		t.Fatalf("fields = %v", fields)
	}
}
