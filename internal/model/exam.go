package model

import (
	"strings"
	"time"
)

// ExamType enumerates the kinds of assessment a course can carry.
type ExamType string

const (
	ExamTypeInternal   ExamType = "internal_exam"
	ExamTypeGoogleForm ExamType = "google_form"
	ExamTypeExternal   ExamType = "external"
	ExamTypeLink       ExamType = "link"
)

// HasQuestions reports whether exams of this type are authored question by question.
// All other types point at a URL instead.
func (t ExamType) HasQuestions() bool {
	return t == ExamTypeInternal
}

// ParseExamType maps a wire value onto an ExamType. Unknown or empty values
// fall back to an internal exam.
func ParseExamType(s string) ExamType {
	switch ExamType(strings.ToLower(strings.TrimSpace(s))) {
	case ExamTypeGoogleForm:
		return ExamTypeGoogleForm
	case ExamTypeExternal:
		return ExamTypeExternal
	case ExamTypeLink:
		return ExamTypeLink
	default:
		return ExamTypeInternal
	}
}

// Exam is the editable representation of one course assessment.
type Exam struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	Type                   ExamType   `json:"type"`
	URL                    string     `json:"url,omitempty"`
	TotalMarks             int        `json:"totalMarks"`
	TotalPoints            int        `json:"totalPoints"`
	Duration               int        `json:"duration"`
	PassingScore           int        `json:"passingScore"`
	Questions              []Question `json:"questions"`
	MigratedFromGoogleForm bool       `json:"migratedFromGoogleForm,omitempty"`
	MigrationNote          string     `json:"migrationNote,omitempty"`
	CreatedAt              *time.Time `json:"createdAt,omitempty"`
}

// Clone returns a deep copy of the exam.
func (e Exam) Clone() Exam {
	out := e
	if e.Questions != nil {
		out.Questions = make([]Question, len(e.Questions))
		for i, q := range e.Questions {
			out.Questions[i] = q.Clone()
		}
	}
	if e.CreatedAt != nil {
		t := *e.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

// CloneExams deep-copies a list of exams.
func CloneExams(exams []Exam) []Exam {
	if exams == nil {
		return nil
	}
	out := make([]Exam, len(exams))
	for i, e := range exams {
		out[i] = e.Clone()
	}
	return out
}

// DefaultQuestionPoints is the score a freshly added question is worth.
const DefaultQuestionPoints = 10
