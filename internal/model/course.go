package model

import (
	"encoding/json"
	"time"
)

// CourseForm holds the editable course fields of the create/edit form.
// Price and Duration stay strings as typed so that an invalid entry survives
// in drafts until the admin fixes it.
type CourseForm struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"required"`
	Grade       string `json:"grade" validate:"required"`
	Price       string `json:"price" validate:"required,nonnegnum"`
	Duration    string `json:"duration"`
	Level       string `json:"level"`
	IsActive    bool   `json:"isActive"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// CoursePatch updates selected course form fields. Nil fields are left alone.
type CoursePatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Subject     *string `json:"subject"`
	Grade       *string `json:"grade"`
	Price       *string `json:"price"`
	Duration    *string `json:"duration"`
	Level       *string `json:"level"`
	IsActive    *bool   `json:"isActive"`
	ImageURL    *string `json:"imageUrl"`
}

// Apply copies every non-nil field of p into f.
func (p CoursePatch) Apply(f *CourseForm) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&f.Title, p.Title)
	set(&f.Description, p.Description)
	set(&f.Subject, p.Subject)
	set(&f.Grade, p.Grade)
	set(&f.Price, p.Price)
	set(&f.Duration, p.Duration)
	set(&f.Level, p.Level)
	set(&f.ImageURL, p.ImageURL)
	if p.IsActive != nil {
		f.IsActive = *p.IsActive
	}
}

// Video is one lesson video attached to a course.
type Video struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title" binding:"required"`
	URL         string `json:"url" binding:"required"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

// Course is a course document as returned by the course API.
type Course struct {
	ID          string      `json:"_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Subject     string      `json:"subject"`
	Grade       string      `json:"grade"`
	Price       json.Number `json:"price"`
	Duration    string      `json:"duration"`
	Level       string      `json:"level"`
	IsActive    bool        `json:"isActive"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Videos      []Video     `json:"videos,omitempty"`
	Exams       []LooseExam `json:"exams,omitempty"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

// FormSnapshot is the combined state autosaved for a course form.
// EditingExam carries an exam that was open in the builder but not saved.
type FormSnapshot struct {
	CourseForm  CourseForm `json:"courseForm"`
	Videos      []Video    `json:"videos"`
	Exams       []Exam     `json:"exams"`
	EditingExam *Exam      `json:"editingExam,omitempty"`
}
