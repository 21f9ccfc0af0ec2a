package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnswerKind tags which variant a CorrectAnswer holds.
type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerBool
	AnswerOption
)

// CorrectAnswer is the answer key of one question:
//   - None for essays (graded by hand),
//   - Bool for true/false questions,
//   - Option(id) for multiple choice, where Option("") means "not selected yet".
//
// Loosely typed legacy values (option indexes, "true" strings) never reach
// this type; the normalizer resolves them first.
type CorrectAnswer struct {
	kind AnswerKind
	b    bool
	ref  string
}

// NoAnswer is the answer of an essay question.
func NoAnswer() CorrectAnswer { return CorrectAnswer{} }

// BoolAnswer is the answer of a true/false question.
func BoolAnswer(v bool) CorrectAnswer { return CorrectAnswer{kind: AnswerBool, b: v} }

// OptionAnswer references a multiple-choice option by id.
func OptionAnswer(id string) CorrectAnswer { return CorrectAnswer{kind: AnswerOption, ref: id} }

// Kind returns the variant tag.
func (a CorrectAnswer) Kind() AnswerKind { return a.kind }

// Bool returns the boolean value and whether the answer is a Bool.
func (a CorrectAnswer) Bool() (bool, bool) { return a.b, a.kind == AnswerBool }

// OptionRef returns the referenced option id and whether the answer is an Option.
func (a CorrectAnswer) OptionRef() (string, bool) { return a.ref, a.kind == AnswerOption }

// IsSet reports whether an answer has actually been chosen.
func (a CorrectAnswer) IsSet() bool {
	switch a.kind {
	case AnswerBool:
		return true
	case AnswerOption:
		return a.ref != ""
	}
	return false
}

func (a CorrectAnswer) String() string {
	switch a.kind {
	case AnswerBool:
		return fmt.Sprintf("%t", a.b)
	case AnswerOption:
		return a.ref
	}
	return "<none>"
}

// MarshalJSON encodes None as null, Bool as a JSON boolean and Option as a string.
func (a CorrectAnswer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerBool:
		return json.Marshal(a.b)
	case AnswerOption:
		return json.Marshal(a.ref)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts exactly the three shapes MarshalJSON produces.
func (a *CorrectAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = NoAnswer()
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*a = BoolAnswer(v)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = OptionAnswer(s)
		return nil
	}
	return fmt.Errorf("correctAnswer: unsupported value %s", data)
}
