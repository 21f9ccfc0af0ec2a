package model

import (
	"strings"
)

// QuestionType is the canonical question kind. Legacy spellings are mapped
// onto it once by ParseQuestionType.
type QuestionType string

const (
	QuestionTypeMCQ       QuestionType = "mcq"
	QuestionTypeTrueFalse QuestionType = "true_false"
	QuestionTypeEssay     QuestionType = "essay"
)

// questionTypeAliases lists every spelling seen in stored documents.
var questionTypeAliases = map[string]QuestionType{
	"mcq":             QuestionTypeMCQ,
	"multiple_choice": QuestionTypeMCQ,
	"multiple-choice": QuestionTypeMCQ,
	"true_false":      QuestionTypeTrueFalse,
	"true-false":      QuestionTypeTrueFalse,
	"truefalse":       QuestionTypeTrueFalse,
	"boolean":         QuestionTypeTrueFalse,
	"essay":           QuestionTypeEssay,
}

// ParseQuestionType resolves a wire spelling to its canonical type.
func ParseQuestionType(s string) (QuestionType, bool) {
	qt, ok := questionTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return qt, ok
}

// Valid reports whether t is one of the canonical question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeEssay:
		return true
	}
	return false
}

// Option is one selectable answer of a multiple-choice question.
// The ID never changes once the option exists.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is one gradeable item of an internal exam.
type Question struct {
	ID            string        `json:"id"`
	QuestionText  string        `json:"questionText"`
	Type          QuestionType  `json:"type"`
	Options       []Option      `json:"options"`
	CorrectAnswer CorrectAnswer `json:"correctAnswer"`
	Points        int           `json:"points"`
	Order         int           `json:"order"`
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]Option(nil), q.Options...)
	}
	return out
}

// OptionIndex returns the position of the option with the given id, or -1.
func (q Question) OptionIndex(id string) int {
	for i, o := range q.Options {
		if o.ID == id {
			return i
		}
	}
	return -1
}
