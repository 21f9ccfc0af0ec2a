package courseapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second, zerolog.Nop())
}

func samplePayload() CoursePayload {
	return CoursePayload{
		Form: model.CourseForm{
			Title: "Algebra", Subject: "math", Grade: "10", Price: "150", IsActive: true,
			ImageURL: "https://cdn.example/a.png",
		},
		Videos: []model.Video{{Title: "Intro", URL: "https://v.example/1", Order: 1}},
		Exams: []model.ServerExam{{
			ID: "exam_1", Title: "Quiz 1", Type: model.ExamTypeInternal, TotalMarks: 5, TotalPoints: 5,
			Questions: []model.ServerQuestion{{
				ID: "q_1", QuestionText: "2+2=?", Type: model.QuestionTypeMCQ, CorrectAnswer: "opt_2",
				Options: []model.ServerOption{{ID: "opt_1", Text: "3", OptionText: "3"}, {ID: "opt_2", Text: "4", OptionText: "4"}},
				Points:  5, Marks: 5, Order: 1,
			}},
		}},
	}
}

func TestCreateSendsMultipartWithStringFields(t *testing.T) {
	var got map[string]string
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/admin/courses" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not multipart: %v", err)
		}
		got = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"course":{"_id":"c1","title":"Algebra","price":150}}`)
	})

	ctx := WithBearer(context.Background(), "tok")
	course, err := c.Create(ctx, samplePayload())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if course.ID != "c1" {
		t.Fatalf("course = %+v", course)
	}
	if auth != "Bearer tok" {
		t.Fatalf("authorization = %q", auth)
	}
	if got["isActive"] != "true" || got["price"] != "150" || got["imageUrl"] != "https://cdn.example/a.png" {
		t.Fatalf("fields = %v", got)
	}

	var exams []model.ServerExam
	if err := json.Unmarshal([]byte(got["exams"]), &exams); err != nil {
		t.Fatalf("exams field is not a JSON string: %v", err)
	}
	if exams[0].Questions[0].CorrectAnswer != "opt_2" {
		t.Fatalf("exams = %+v", exams)
	}
	var videos []model.Video
	if err := json.Unmarshal([]byte(got["videos"]), &videos); err != nil || len(videos) != 1 {
		t.Fatalf("videos field = %q", got["videos"])
	}
}

func TestCreateUploadsImage(t *testing.T) {
	var filename, content string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("no image part: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		filename, content = hdr.Filename, string(b)
		if _, ok := r.MultipartForm.Value["imageUrl"]; ok {
			t.Errorf("imageUrl sent alongside a file")
		}
		io.WriteString(w, `{"_id":"c2"}`)
	})

	p := samplePayload()
	p.Image = &Upload{Filename: "cover.png", ContentType: "image/png", Data: []byte("PNG")}
	course, err := c.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if course.ID != "c2" || filename != "cover.png" || content != "PNG" {
		t.Fatalf("id=%s file=%s content=%s", course.ID, filename, content)
	}
}

func TestUpdateWithImageSendsMultipart(t *testing.T) {
	var method, filename, imageURL, videos string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method + " " + r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("not multipart: %v", err)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("no image part: %v", err)
			return
		}
		f.Close()
		filename = hdr.Filename
		imageURL = r.FormValue("imageUrl")
		videos = r.FormValue("videos")
		io.WriteString(w, `{"_id":"c1"}`)
	})

	p := samplePayload()
	p.Form.ImageURL = "https://cdn.example/old.png"
	p.Image = &Upload{Filename: "new.png", ContentType: "image/png", Data: []byte("PNG")}
	if _, err := c.Update(context.Background(), "c1", p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if method != "PATCH /api/admin/courses/c1" {
		t.Fatalf("request = %s", method)
	}
	if filename != "new.png" || imageURL != "" {
		t.Fatalf("file=%q imageUrl=%q", filename, imageURL)
	}
	if !strings.HasPrefix(videos, "[") {
		t.Fatalf("videos field = %q", videos)
	}
}

func TestUpdateSendsNativeJSON(t *testing.T) {
	var body map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/admin/courses/c1" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&body)
		io.WriteString(w, `{"data":{"_id":"c1"}}`)
	})

	if _, err := c.Update(context.Background(), "c1", samplePayload()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if string(body["price"]) != "150" {
		t.Fatalf("price = %s", body["price"])
	}
	if len(body["exams"]) == 0 || body["exams"][0] != '[' {
		t.Fatalf("exams not a native array: %s", body["exams"])
	}
	if body["videos"][0] != '[' {
		t.Fatalf("videos not a native array: %s", body["videos"])
	}
}

func TestGetTolerantDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"course":{"_id":"c1","title":"Old","price":"99","exams":[
			{"id":"e1","title":"Q","type":"internal_exam","questions":[
				{"id":"q1","questionText":"x","type":"multiple_choice","options":["a","b"],"correctAnswer":0,"marks":"3"}
			]}
		]}}`)
	})

	course, err := c.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if course.Price.String() != "99" || len(course.Exams) != 1 {
		t.Fatalf("course = %+v", course)
	}
	q := course.Exams[0].Questions[0]
	if q.Marks.Value != 3 || q.Options[1].Label() != "b" {
		t.Fatalf("question = %+v", q)
	}
}

func TestListEnvelopes(t *testing.T) {
	for _, body := range []string{
		`[{"_id":"a"},{"_id":"b"}]`,
		`{"courses":[{"_id":"a"},{"_id":"b"}]}`,
		`{"success":true,"data":[{"_id":"a"},{"_id":"b"}]}`,
	} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, body) })
		courses, err := c.List(context.Background())
		if err != nil || len(courses) != 2 || courses[1].ID != "b" {
			t.Fatalf("%s: courses=%+v err=%v", body, courses, err)
		}
	}
}

func TestAPIErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []string
	}{
		{name: "message", status: 400, body: `{"message":"العنوان مستخدم"}`, want: []string{"العنوان مستخدم"}},
		{name: "error string", status: 401, body: `{"error":"unauthorized"}`, want: []string{"unauthorized"}},
		{name: "errors list", status: 422, body: `{"message":"bad","errors":["a","b"]}`, want: []string{"a", "b"}},
		{name: "validator list", status: 422, body: `{"errors":[{"msg":"price must be numeric","param":"price"}]}`, want: []string{"price must be numeric"}},
		{name: "field map", status: 422, body: `{"errors":{"title":"required","grade":"required too"}}`, want: []string{"required too", "required"}},
		{name: "plain text", status: 500, body: `boom`, want: []string{"boom"}},
		{name: "html page", status: 502, body: `<html>bad gateway</html>`, want: nil},
		{name: "empty", status: 500, body: ``, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			err := c.Delete(context.Background(), "c1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != tc.status {
				t.Fatalf("status = %d", apiErr.Status)
			}
			if !reflect.DeepEqual(apiErr.Messages, tc.want) {
				t.Fatalf("messages = %#v, want %#v", apiErr.Messages, tc.want)
			}
			if len(tc.want) == 0 && apiErr.UserMessages()[0] != GenericFailure {
				t.Fatalf("user messages = %v", apiErr.UserMessages())
			}
		})
	}
}

func TestSetStatus(t *testing.T) {
	var body map[string]bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/courses/c1/status" || r.Method != http.MethodPatch {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})
	course, err := c.SetStatus(context.Background(), "c1", false)
	if err != nil || course != nil {
		t.Fatalf("course=%v err=%v", course, err)
	}
	if v, ok := body["isActive"]; !ok || v {
		t.Fatalf("body = %v", body)
	}
}
