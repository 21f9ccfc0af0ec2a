package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexInt decodes an integer sent either as a JSON number or as a numeric
// string. Valid is false when the field was absent, null or unparseable.
type FlexInt struct {
	Value int
	Valid bool
}

// Int wraps v as a valid FlexInt.
func Int(v int) FlexInt { return FlexInt{Value: v, Valid: true} }

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		*f = Int(n)
		return nil
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil {
		*f = Int(int(fl))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// LooseOption is an option as found in stored or client-sent documents.
// Older documents store bare strings instead of objects.
type LooseOption struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"text,omitempty"`
	OptionText string `json:"optionText,omitempty"`
}

// UnmarshalJSON accepts either an option object or a bare string.
func (o *LooseOption) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = LooseOption{Text: s}
		return nil
	}
	type plain LooseOption
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = LooseOption(p)
	return nil
}

// Label returns the option's display text, whichever field carries it.
func (o LooseOption) Label() string {
	if o.Text != "" {
		return o.Text
	}
	return o.OptionText
}

// LooseQuestion is a question whose fields have not been normalized yet.
// CorrectAnswer may be a bool, string, number or null.
type LooseQuestion struct {
	ID            string        `json:"id,omitempty"`
	QuestionText  string        `json:"questionText"`
	Type          string        `json:"type"`
	Options       []LooseOption `json:"options,omitempty"`
	CorrectAnswer any           `json:"correctAnswer"`
	Points        FlexInt       `json:"points"`
	Marks         FlexInt       `json:"marks"`
	Order         FlexInt       `json:"order"`
}

// LooseExam is an exam in either UI or server shape, possibly from an older
// client or an older stored course document.
type LooseExam struct {
	ID                     string          `json:"id,omitempty"`
	Title                  string          `json:"title"`
	Type                   string          `json:"type"`
	URL                    string          `json:"url,omitempty"`
	Duration               FlexInt         `json:"duration"`
	PassingScore           FlexInt         `json:"passingScore"`
	Questions              []LooseQuestion `json:"questions,omitempty"`
	MigratedFromGoogleForm bool            `json:"migratedFromGoogleForm,omitempty"`
	MigrationNote          string          `json:"migrationNote,omitempty"`
	CreatedAt              *time.Time      `json:"createdAt,omitempty"`
}

// ServerOption is the option shape the course API stores. OptionText
// duplicates Text for older readers.
type ServerOption struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	OptionText string `json:"optionText"`
}

// ServerQuestion is the normalized question the course API accepts.
// CorrectAnswer is a bool, an option id or nil, never anything else.
type ServerQuestion struct {
	ID            string         `json:"id"`
	QuestionText  string         `json:"questionText"`
	Type          QuestionType   `json:"type"`
	Options       []ServerOption `json:"options"`
	CorrectAnswer any            `json:"correctAnswer"`
	Points        int            `json:"points"`
	Marks         int            `json:"marks"`
	Order         int            `json:"order"`
}

// ServerExam is the normalized exam the course API accepts.
type ServerExam struct {
	ID                     string           `json:"id"`
	Title                  string           `json:"title"`
	Type                   ExamType         `json:"type"`
	URL                    string           `json:"url,omitempty"`
	TotalMarks             int              `json:"totalMarks"`
	TotalPoints            int              `json:"totalPoints"`
	Duration               int              `json:"duration"`
	PassingScore           int              `json:"passingScore"`
	Questions              []ServerQuestion `json:"questions"`
	MigratedFromGoogleForm bool             `json:"migratedFromGoogleForm,omitempty"`
	MigrationNote          string           `json:"migrationNote,omitempty"`
	CreatedAt              *time.Time       `json:"createdAt,omitempty"`
}
