package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ibnmalik/lms-admin/internal/normalizer"
)

// Course form errors.
var (
	ErrFormNotFound     = errors.New("course form not found")
	ErrFormClosed       = errors.New("course form is closed")
	ErrSubmitInProgress = errors.New("course submission already in progress")
	ErrRestorePending   = errors.New("draft restore decision pending")
	ErrNoRestoreOffer   = errors.New("no draft restore offer")
	ErrImageTooLarge    = errors.New("image exceeds upload limit")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// FormErrors lists invalid course fields, keyed by their json names.
type FormErrors struct {
	Fields map[string]string
}

func (e *FormErrors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "invalid course fields: " + strings.Join(parts, "; ")
}

// GateProblem is one question that failed the submit-time exam check.
type GateProblem struct {
	Exam int `json:"exam"`
	normalizer.QuestionError
}

// ExamGateError is the submit-time exam check failing. Every problem names
// the exam title and the 1-based question index.
type ExamGateError struct {
	Problems []GateProblem
}

func (e *ExamGateError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.QuestionError.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields keys each problem as "exams[i].questions[n]", both 1-based.
func (e *ExamGateError) Fields() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		out[fmt.Sprintf("exams[%d].questions[%d]", p.Exam, p.Question)] = p.QuestionError.Error()
	}
	return out
}
