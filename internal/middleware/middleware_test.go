package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/ibnmalik/lms-admin/internal/config"
	"github.com/ibnmalik/lms-admin/internal/courseapi"
	"github.com/ibnmalik/lms-admin/internal/model"
	"github.com/ibnmalik/lms-admin/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth() *service.AuthService {
	return service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})
}

func TestRequireAdminJWT(t *testing.T) {
	auth := newAuth()
	writer, _ := auth.GenerateAdminToken(7, 1, []string{string(model.PermissionCoursesWrite)})
	reader, _ := auth.GenerateAdminToken(8, 2, []string{string(model.PermissionCoursesRead)})

	r := gin.New()
	r.GET("/forms", RequireAdminJWT(auth), RequirePermission(model.PermissionCoursesWrite), func(c *gin.Context) {
		token, _ := courseapi.BearerFrom(c.Request.Context())
		c.String(http.StatusOK, "%d:%t", GetClaims(c).UserID, token != "")
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{name: "missing token", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "header token", header: "Bearer " + writer, status: http.StatusOK, body: "7:true"},
		{name: "query token", query: "?token=" + writer, status: http.StatusOK, body: "7:true"},
		{name: "missing permission", header: "Bearer " + reader, status: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/forms"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.status, w.Body.String())
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q", w.Body.String())
			}
		})
	}
}

func TestMemoryLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewMemoryLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		if ok, _ := rl.Allow(ctx, "a"); ok != want {
			t.Fatalf("request %d allowed = %v", i+1, ok)
		}
	}
	if ok, _ := rl.Allow(ctx, "b"); !ok {
		t.Fatal("buckets are not per key")
	}

	now = now.Add(30 * time.Second)
	if ok, _ := rl.Allow(ctx, "a"); !ok {
		t.Fatal("bucket did not refill")
	}
}

func TestRedisLimiterWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	rl := NewRedisLimiter(rdb, 2, time.Minute)
	ctx := context.Background()
	key := config.CacheKey.SubmitRateKey(7)

	for i, want := range []bool{true, true, false} {
		ok, err := rl.Allow(ctx, key)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if ok != want {
			t.Fatalf("request %d allowed = %v", i+1, ok)
		}
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if ok, _ := rl.Allow(ctx, key); !ok {
		t.Fatal("window did not reset")
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, io.ErrUnexpectedEOF
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := gin.New()
	r.POST("/submit", RateLimit(brokenLimiter{}, SubmitKey, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("الدورة ", 400)
	r := gin.New()
	r.Use(Brotli(), NoStore())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		path     string
		encoding string
		want     string
	}{
		{path: "/big", encoding: "br", want: big},
		{path: "/small", encoding: "", want: "ok"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Content-Encoding"); got != tc.encoding {
				t.Fatalf("Content-Encoding = %q, want %q", got, tc.encoding)
			}
			if w.Header().Get("Cache-Control") != "no-store" {
				t.Fatal("Cache-Control not set")
			}
			var body io.Reader = w.Body
			if tc.encoding == "br" {
				body = brotli.NewReader(w.Body)
			}
			got, err := io.ReadAll(body)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("body mismatch: %d bytes", len(got))
			}
		})
	}
}
