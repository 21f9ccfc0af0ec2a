// Package courseapi is the client for the external course REST API that owns
// course documents.
package courseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/rs/zerolog"
)

// ErrUnavailable wraps transport failures: the API could not be reached or
// did not answer in time.
var ErrUnavailable = errors.New("course API unavailable")

// GenericFailure is shown when the API rejects a request without a message.
const GenericFailure = "فشل الاتصال بخادم الدورات، يرجى المحاولة مرة أخرى"

// APIError is a non-2xx answer from the course API. Messages holds whatever
// the server said, verbatim.
type APIError struct {
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("course api: status %d", e.Status)
	}
	return fmt.Sprintf("course api: status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

// UserMessages returns the server's messages, or GenericFailure when there
// are none.
func (e *APIError) UserMessages() []string {
	if len(e.Messages) == 0 {
		return []string{GenericFailure}
	}
	return e.Messages
}

// Upload is an image file forwarded to the API on create or update.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CoursePayload is everything submitted for one course.
type CoursePayload struct {
	Form   model.CourseForm
	Videos []model.Video
	Exams  []model.ServerExam
	Image  *Upload
}

// Client talks to the course API. Calls forward the bearer token stored in
// the context by WithBearer.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// New creates a Client for baseURL, e.g. "https://api.example.com".
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	hc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{
		http: hc,
		log:  log.With().Str("component", "course_api").Logger(),
	}
}

type bearerKey struct{}

// WithBearer returns a context whose calls authenticate with token.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerFrom returns the token attached by WithBearer.
func BearerFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerKey{}).(string)
	return token, ok && token != ""
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if token, ok := BearerFrom(ctx); ok {
		r.SetAuthToken(token)
	}
	return r
}

// List returns all courses.
func (c *Client) List(ctx context.Context) ([]model.Course, error) {
	resp, err := c.request(ctx).Get("/api/admin/courses")
	if err := c.check(resp, err, "list courses"); err != nil {
		return nil, err
	}
	var courses []model.Course
	if err := decodeEnvelope(resp.Body(), &courses, "courses", "data"); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	return courses, nil
}

// Get returns one course with its videos and exams.
func (c *Client) Get(ctx context.Context, id string) (*model.Course, error) {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		Get("/api/admin/courses/{id}")
	if err := c.check(resp, err, "get course"); err != nil {
		return nil, err
	}
	return decodeCourse(resp.Body())
}

// Create posts a new course as multipart form data. Videos and exams travel
// as JSON strings in their own fields.
func (c *Client) Create(ctx context.Context, p CoursePayload) (*model.Course, error) {
	r, err := c.multipart(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := r.Post("/api/admin/courses")
	if err := c.check(resp, err, "create course"); err != nil {
		return nil, err
	}
	return decodeCourse(resp.Body())
}

// multipart builds the form-data request shared by Create and by Update
// when a new image file has to travel with the course.
func (c *Client) multipart(ctx context.Context, p CoursePayload) (*resty.Request, error) {
	videos, err := json.Marshal(nonNilVideos(p.Videos))
	if err != nil {
		return nil, fmt.Errorf("encode videos: %w", err)
	}
	exams, err := json.Marshal(nonNilExams(p.Exams))
	if err != nil {
		return nil, fmt.Errorf("encode exams: %w", err)
	}

	fields := map[string]string{
		"title":       p.Form.Title,
		"description": p.Form.Description,
		"subject":     p.Form.Subject,
		"grade":       p.Form.Grade,
		"price":       strings.TrimSpace(p.Form.Price),
		"duration":    p.Form.Duration,
		"level":       p.Form.Level,
		"isActive":    strconv.FormatBool(p.Form.IsActive),
		"videos":      string(videos),
		"exams":       string(exams),
	}

	r := c.request(ctx).SetMultipartFormData(fields)
	if p.Image != nil {
		r.SetMultipartField("image", p.Image.Filename, p.Image.ContentType, bytes.NewReader(p.Image.Data))
	} else if p.Form.ImageURL != "" {
		r.SetMultipartFormData(map[string]string{"imageUrl": p.Form.ImageURL})
	}
	return r, nil
}

type updateBody struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Subject     string             `json:"subject"`
	Grade       string             `json:"grade"`
	Price       json.Number        `json:"price"`
	Duration    string             `json:"duration"`
	Level       string             `json:"level"`
	IsActive    bool               `json:"isActive"`
	ImageURL    string             `json:"imageUrl,omitempty"`
	Videos      []model.Video      `json:"videos"`
	Exams       []model.ServerExam `json:"exams"`
}

// Update patches an existing course with a JSON body. Unlike Create, videos
// and exams are sent as native JSON arrays. A new image file switches the
// request to Create's multipart encoding.
func (c *Client) Update(ctx context.Context, id string, p CoursePayload) (*model.Course, error) {
	if p.Image != nil {
		r, err := c.multipart(ctx, p)
		if err != nil {
			return nil, err
		}
		resp, err := r.SetPathParam("id", id).Patch("/api/admin/courses/{id}")
		if err := c.check(resp, err, "update course"); err != nil {
			return nil, err
		}
		return decodeCourse(resp.Body())
	}

	body := updateBody{
		Title:       p.Form.Title,
		Description: p.Form.Description,
		Subject:     p.Form.Subject,
		Grade:       p.Form.Grade,
		Price:       json.Number(strings.TrimSpace(p.Form.Price)),
		Duration:    p.Form.Duration,
		Level:       p.Form.Level,
		IsActive:    p.Form.IsActive,
		ImageURL:    p.Form.ImageURL,
		Videos:      nonNilVideos(p.Videos),
		Exams:       nonNilExams(p.Exams),
	}

	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Patch("/api/admin/courses/{id}")
	if err := c.check(resp, err, "update course"); err != nil {
		return nil, err
	}
	return decodeCourse(resp.Body())
}

// Delete removes a course.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		Delete("/api/admin/courses/{id}")
	return c.check(resp, err, "delete course")
}

// SetStatus activates or deactivates a course.
func (c *Client) SetStatus(ctx context.Context, id string, active bool) (*model.Course, error) {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]bool{"isActive": active}).
		Patch("/api/admin/courses/{id}/status")
	if err := c.check(resp, err, "set course status"); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(resp.Body())) == 0 {
		return nil, nil
	}
	return decodeCourse(resp.Body())
}

func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.log.Error().Err(err).Str("op", op).Msg("Course API request failed")
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode(), Messages: parseMessages(resp.Body())}
	if resp.StatusCode() >= http.StatusInternalServerError {
		c.log.Error().Int("status", apiErr.Status).Str("op", op).Strs("messages", apiErr.Messages).Msg("Course API error")
	} else {
		c.log.Warn().Int("status", apiErr.Status).Str("op", op).Strs("messages", apiErr.Messages).Msg("Course API rejected request")
	}
	return apiErr
}

func nonNilVideos(v []model.Video) []model.Video {
	if v == nil {
		return []model.Video{}
	}
	return v
}

func nonNilExams(e []model.ServerExam) []model.ServerExam {
	if e == nil {
		return []model.ServerExam{}
	}
	return e
}
