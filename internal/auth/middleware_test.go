package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runMiddleware(t *testing.T, ts *TokenService, header string) (int64, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var got int64
	err := ts.Middleware()(func(c echo.Context) error {
		got = GetUserID(c)
		return nil
	})(c)
	return got, err
}

func TestMiddlewareSetsUserID(t *testing.T) {
	ts := NewTokenService("test-secret-key")
	token, err := ts.GenerateAccessToken(77)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error: %v", err)
	}

	got, err := runMiddleware(t, ts, "Bearer "+token)
	if err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if got != 77 {
		t.Errorf("user_id = %d, want 77", got)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	ts := NewTokenService("test-secret-key")
	token, _ := ts.GenerateAccessToken(1)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, ts, tt.header)
			var he *echo.HTTPError
			if !errors.As(err, &he) {
				t.Fatalf("expected *echo.HTTPError, got %v", err)
			}
			if he.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", he.Code)
			}
		})
	}
}
