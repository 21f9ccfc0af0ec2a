package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/builder"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
	"github.com/ibnmalik/lms-admin/internal/normalizer"
	"github.com/ibnmalik/lms-admin/internal/response"
	"github.com/ibnmalik/lms-admin/internal/service"
	"github.com/ibnmalik/lms-admin/internal/validator"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type errorEnvelope struct {
	Error struct {
		Code     response.ErrCode  `json:"code"`
		Messages []string          `json:"messages"`
		Fields   map[string]string `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v: %s", err, w.Body.String())
	}
	return env
}

func TestFailFor(t *testing.T) {
	gate := &service.ExamGateError{Problems: []service.GateProblem{{
		Exam:          2,
		QuestionError: normalizer.QuestionError{ExamTitle: "Midterm", Question: 3, Reason: "no answer"},
	}}}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   response.ErrCode
		wantField  string
	}{
		{"form fields", &service.FormErrors{Fields: map[string]string{"price": "bad"}}, http.StatusUnprocessableEntity, response.ErrValidation, "price"},
		{"exam gate", fmt.Errorf("submit: %w", gate), http.StatusUnprocessableEntity, response.ErrExamInvalid, "exams[2].questions[3]"},
		{"form missing", service.ErrFormNotFound, http.StatusNotFound, response.ErrFormNotFound, ""},
		{"form closed", service.ErrFormClosed, http.StatusGone, response.ErrFormClosed, ""},
		{"double submit", service.ErrSubmitInProgress, http.StatusConflict, response.ErrSubmitInProgress, ""},
		{"restore pending", service.ErrRestorePending, http.StatusConflict, response.ErrRestorePending, ""},
		{"image too big", fmt.Errorf("%w: 9 bytes", service.ErrImageTooLarge), http.StatusRequestEntityTooLarge, response.ErrFileTooLarge, ""},
		{"not editing", builder.ErrNotEditing, http.StatusConflict, response.ErrNotEditing, ""},
		{"exam missing", builder.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound, ""},
		{"upstream 404", &courseapi.APIError{Status: 404}, http.StatusNotFound, response.ErrNotFound, ""},
		{"upstream 400", &courseapi.APIError{Status: 400, Messages: []string{"title taken"}}, http.StatusBadGateway, response.ErrUpstream, ""},
		{"upstream down", fmt.Errorf("get: %w: %w", courseapi.ErrUnavailable, errors.New("refused")), http.StatusBadGateway, response.ErrUpstream, ""},
		{"upstream timeout", fmt.Errorf("get: %w: %w", courseapi.ErrUnavailable, context.DeadlineExceeded), http.StatusGatewayTimeout, response.ErrUpstream, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, response.ErrInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			failFor(c, zerolog.Nop(), tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			env := decodeError(t, w)
			if env.Error.Code != tt.wantCode {
				t.Fatalf("code = %s, want %s", env.Error.Code, tt.wantCode)
			}
			if tt.wantField != "" {
				if _, ok := env.Error.Fields[tt.wantField]; !ok {
					t.Fatalf("fields %v missing %s", env.Error.Fields, tt.wantField)
				}
			}
		})
	}
}

func TestFailForKeepsUpstreamMessages(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	failFor(c, zerolog.Nop(), &courseapi.APIError{Status: 422, Messages: []string{"title taken", "price invalid"}})

	env := decodeError(t, w)
	if len(env.Error.Messages) != 2 || env.Error.Messages[0] != "title taken" {
		t.Fatalf("messages = %v", env.Error.Messages)
	}
}

func newCourseRouter(t *testing.T, api http.HandlerFunc) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	h := NewCourseHandler(courseapi.New(srv.URL, 2*time.Second, zerolog.Nop()), zerolog.Nop())
	r := gin.New()
	r.GET("/courses", h.ListCourses)
	r.DELETE("/courses/:course_id", h.DeleteCourse)
	r.PATCH("/courses/:course_id/status", h.SetCourseStatus)
	return r
}

func TestCourseHandler(t *testing.T) {
	var lastPath, lastBody string
	r := newCourseRouter(t, func(w http.ResponseWriter, req *http.Request) {
		lastPath = req.Method + " " + req.URL.Path
		b, _ := io.ReadAll(req.Body)
		lastBody = string(b)
		switch {
		case req.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"courses":[{"_id":"a","title":"Algebra","price":10}]}`))
		case req.Method == http.MethodDelete && strings.HasSuffix(req.URL.Path, "/missing"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Course not found"}`))
		case req.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = w.Write([]byte(`{"course":{"_id":"a","isActive":false,"price":10}}`))
		}
	})

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"Algebra"`) {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/courses/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
		if env := decodeError(t, w); env.Error.Code != response.ErrNotFound {
			t.Fatalf("code = %s", env.Error.Code)
		}
	})

	t.Run("status requires isActive", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/courses/a/status", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("status forwards value", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/courses/a/status", strings.NewReader(`{"isActive":false}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		if lastPath != "PATCH /api/admin/courses/a/status" || !strings.Contains(lastBody, `"isActive":false`) {
			t.Fatalf("upstream saw %s %s", lastPath, lastBody)
		}
	})
}
