package exam

import (
	"fmt"
	"strings"

	"github.com/ibnmalik/lms-admin/internal/model"
)

// Validation messages shown to the admin.
const (
	MsgTitleRequired     = "عنوان الاختبار مطلوب"
	MsgURLRequired       = "رابط الاختبار مطلوب"
	MsgNoQuestions       = "يجب إضافة سؤال واحد على الأقل"
	MsgTextRequired      = "نص السؤال مطلوب"
	MsgTooFewOptions     = "يجب أن يحتوي السؤال على خيارين على الأقل"
	MsgAnswerMissing     = "لم يتم تحديد الإجابة الصحيحة"
	MsgAnswerStale       = "الإجابة الصحيحة لا تطابق أي خيار حالي"
	MsgTrueFalseAnswer   = "يجب تحديد صحيح أو خطأ كإجابة"
	MsgPointsPositive    = "يجب أن تكون الدرجة رقماً موجباً"
	MsgUnknownType       = "نوع السؤال غير معروف"
	MsgInvalidDuration   = "مدة الاختبار يجب ألا تكون سالبة"
	MsgInvalidPassingPct = "نسبة النجاح يجب أن تكون بين 0 و 100"
)

// FieldError is one blocking problem. Question is the 1-based position of
// the offending question, or 0 for exam-level fields.
type FieldError struct {
	Field    string `json:"field"`
	Question int    `json:"question,omitempty"`
	Message  string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Question > 0 {
		return fmt.Sprintf("السؤال %d: %s", e.Question, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields flattens the errors into a field→message map keyed like
// "questions[2].correctAnswer".
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		key := e.Field
		if e.Question > 0 {
			key = fmt.Sprintf("questions[%d].%s", e.Question, e.Field)
		}
		if _, exists := out[key]; !exists {
			out[key] = e.Error()
		}
	}
	return out
}

// Validate runs the save-time checks on e. It returns nil or a non-empty
// ValidationErrors; a non-nil result means nothing may be saved.
func Validate(e model.Exam) error {
	var errs ValidationErrors
	add := func(field string, question int, msg string) {
		errs = append(errs, FieldError{Field: field, Question: question, Message: msg})
	}

	if strings.TrimSpace(e.Title) == "" {
		add("title", 0, MsgTitleRequired)
	}
	if e.Duration < 0 {
		add("duration", 0, MsgInvalidDuration)
	}
	if e.PassingScore < 0 || e.PassingScore > 100 {
		add("passingScore", 0, MsgInvalidPassingPct)
	}

	if !e.Type.HasQuestions() {
		if strings.TrimSpace(e.URL) == "" {
			add("url", 0, MsgURLRequired)
		}
		return errs.orNil()
	}

	if len(e.Questions) == 0 {
		add("questions", 0, MsgNoQuestions)
	}

	for i, q := range e.Questions {
		pos := i + 1
		if strings.TrimSpace(q.QuestionText) == "" {
			add("questionText", pos, MsgTextRequired)
		}
		if q.Points < 1 {
			add("points", pos, MsgPointsPositive)
		}

		switch q.Type {
		case model.QuestionTypeMCQ:
			// Blank options are dropped on the way to the server.
			if filledOptions(q.Options) < 2 {
				add("options", pos, MsgTooFewOptions)
			}
			ref, ok := q.CorrectAnswer.OptionRef()
			idx := q.OptionIndex(ref)
			switch {
			case !ok || ref == "":
				add("correctAnswer", pos, MsgAnswerMissing)
			case idx < 0 || strings.TrimSpace(q.Options[idx].Text) == "":
				add("correctAnswer", pos, MsgAnswerStale)
			}
		case model.QuestionTypeTrueFalse:
			if _, ok := q.CorrectAnswer.Bool(); !ok {
				add("correctAnswer", pos, MsgTrueFalseAnswer)
			}
		case model.QuestionTypeEssay:
		default:
			add("type", pos, MsgUnknownType)
		}
	}

	return errs.orNil()
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func filledOptions(opts []model.Option) int {
	n := 0
	for _, o := range opts {
		if strings.TrimSpace(o.Text) != "" {
			n++
		}
	}
	return n
}
