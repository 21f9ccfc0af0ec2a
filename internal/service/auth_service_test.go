package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ibnmalik/lms-admin/internal/config"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour})

	token, err := svc.GenerateAdminToken(7, 2, []string{"courses:write"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.ValidateAdminToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 7 || claims.RoleID != 2 || len(claims.Permissions) != 1 {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret", JWTExpiry: time.Hour}
	svc := NewAuthService(cfg)

	sign := func(c Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := []struct {
		name  string
		token string
		admin bool
	}{
		{name: "wrong secret", token: sign(Claims{RegisteredClaims: valid, TokenType: TokenTypeAdmin}, "other")},
		{name: "expired", token: sign(Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
			TokenType:        TokenTypeAdmin,
		}, "secret")},
		{name: "garbage", token: "not.a.token"},
		{name: "student token", token: sign(Claims{RegisteredClaims: valid, TokenType: TokenTypeStudent}, "secret"), admin: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ValidateAdminToken(tc.token)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.admin && !errors.Is(err, ErrNotAdminToken) {
				t.Fatalf("expected ErrNotAdminToken, got %v", err)
			}
		})
	}
}
