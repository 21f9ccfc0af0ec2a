package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"kept when well formed", "trace-01.a:b", true},
		{"replaced when too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"replaced when unsafe", "abc\r\nSet-Cookie: x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestIDMiddleware())
			r.GET("/", func(c *gin.Context) { NoContent(c) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if got == "" {
				t.Fatal("no request id")
			}
			if (got == tt.incoming) != tt.keep {
				t.Fatalf("request id = %q, incoming %q, keep %v", got, tt.incoming, tt.keep)
			}

			var body Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Metadata.RequestID != got {
				t.Fatalf("metadata id %q != header %q", body.Metadata.RequestID, got)
			}
		})
	}
}

func TestFailWithMessages(t *testing.T) {
	tests := []struct {
		name        string
		messages    []string
		wantMessage string
	}{
		{"upstream message wins", []string{"العنوان مستخدم", "second"}, "العنوان مستخدم"},
		{"default message without upstream", nil, GetMessage(ErrUpstream)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			FailWithMessages(c, http.StatusBadGateway, ErrUpstream, tt.messages)

			var body Response
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == nil || body.Error.Code != ErrUpstream {
				t.Fatalf("error = %+v", body.Error)
			}
			if body.Error.Message != tt.wantMessage {
				t.Fatalf("message = %q, want %q", body.Error.Message, tt.wantMessage)
			}
			if len(body.Error.Messages) != len(tt.messages) {
				t.Fatalf("messages = %v", body.Error.Messages)
			}
		})
	}
}
