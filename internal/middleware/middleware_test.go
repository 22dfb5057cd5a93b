package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/session"
)

type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, raw string) (auth.Identity, error) {
	switch raw {
	case "admin-token":
		return auth.Identity{UID: "admin", Email: "admin@firenews.com"}, nil
	case "user-token":
		return auth.Identity{UID: "user", Email: "user@example.com"}, nil
	}
	return auth.Identity{}, apperr.Unauthenticated("invalid session token")
}

type fakeSessions struct{}

func (fakeSessions) Load(ctx context.Context, id auth.Identity) *session.Session {
	role := models.RoleUser
	if id.UID == "admin" {
		role = models.RoleAdmin
	}
	return &session.Session{UID: id.UID, Email: id.Email, Role: role, IsAdmin: role == models.RoleAdmin}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	enforcer, err := NewEnforcer(DefaultPolicies)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(NewAuth(AuthConfig{Verifier: fakeVerifier{}, Sessions: fakeSessions{}}))

	api := app.Group("/api/v1")
	api.Get("/public", func(c *fiber.Ctx) error {
		return c.SendString("uid=" + SessionFrom(c).UID)
	})
	api.Get("/me", RequireSession(), func(c *fiber.Ctx) error {
		return c.SendString(SessionFrom(c).UID)
	})

	type input struct {
		Name  string `json:"name" validate:"required"`
		Email string `json:"email" validate:"omitempty,email"`
	}
	api.Post("/echo", ValidateBody[input](), func(c *fiber.Ctx) error {
		return c.SendString(Body[input](c).Name)
	})

	admin := api.Group("/admin", Authorize(enforcer))
	admin.Get("/dashboard", func(c *fiber.Ctx) error { return c.SendString("ok") })
	api.Get("/boom", func(c *fiber.Ctx) error {
		return apperr.Internal("failed to do it", errors.New("disk on fire"))
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func decodeError(t *testing.T, body string) (string, string) {
	t.Helper()
	var out struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return out.Error, out.Code
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "GET", "/api/v1/public", "", "")
	if status != 200 || body != "uid=" {
		t.Fatalf("anonymous: %d %q", status, body)
	}

	status, body = do(t, app, "GET", "/api/v1/public", "user-token", "")
	if status != 200 || body != "uid=user" {
		t.Fatalf("user: %d %q", status, body)
	}

	status, body = do(t, app, "GET", "/api/v1/public", "forged", "")
	if status != 401 {
		t.Fatalf("expected 401 for bad token, got %d", status)
	}
	if msg, code := decodeError(t, body); msg != "invalid session token" || code != "UNAUTHENTICATED" {
		t.Fatalf("unexpected error body %q", body)
	}

	status, _ = do(t, app, "GET", "/api/v1/me", "", "")
	if status != 401 {
		t.Fatalf("expected 401 for anonymous /me, got %d", status)
	}
}

func TestAuthorize(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		token string
		want  int
	}{
		{token: "", want: 401},
		{token: "user-token", want: 403},
		{token: "admin-token", want: 200},
	}
	for _, tt := range tests {
		status, body := do(t, app, "GET", "/api/v1/admin/dashboard", tt.token, "")
		if status != tt.want {
			t.Errorf("token %q: expected %d, got %d (%s)", tt.token, tt.want, status, body)
		}
	}
}

func TestValidateBody(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "POST", "/api/v1/echo", "", `{"name":"Ada"}`)
	if status != 200 || body != "Ada" {
		t.Fatalf("valid body: %d %q", status, body)
	}

	status, body = do(t, app, "POST", "/api/v1/echo", "", `{"email":"nope"}`)
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	msg, code := decodeError(t, body)
	if code != "VALIDATION" || !strings.Contains(msg, "name (required)") || !strings.Contains(msg, "email (email)") {
		t.Fatalf("unexpected error %q %q", msg, code)
	}

	// A failed request must not leak into the next one.
	status, body = do(t, app, "POST", "/api/v1/echo", "", `{"name":"Grace"}`)
	if status != 200 || body != "Grace" {
		t.Fatalf("second body: %d %q", status, body)
	}

	status, _ = do(t, app, "POST", "/api/v1/echo", "", `{not json`)
	if status != 400 {
		t.Fatalf("expected 400 for malformed body, got %d", status)
	}
}

func TestErrorHandlerHidesInternalCause(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, "GET", "/api/v1/boom", "", "")
	if status != 500 {
		t.Fatalf("expected 500, got %d", status)
	}
	msg, code := decodeError(t, body)
	if msg != "failed to do it" || code != "INTERNAL" || strings.Contains(body, "disk") {
		t.Fatalf("unexpected error body %q", body)
	}

	status, body = do(t, app, "GET", "/api/v1/missing", "", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if _, code := decodeError(t, body); code != "NOT_FOUND" {
		t.Fatalf("unexpected code in %q", body)
	}
}

func TestPathMatch(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/api/v1/admin/news", "/api/v1/admin/**", true},
		{"/api/v1/admin/news/1", "/api/v1/admin/**", true},
		{"/api/v1/admin", "/api/v1/admin/**", true},
		{"/api/v1/administrator", "/api/v1/admin/**", false},
		{"/api/v1/news/1", "/api/v1/news/*", true},
		{"/api/v1/news/1/like", "/api/v1/news/*", false},
		{"/api/v1/health", "/api/v1/health", true},
		{"/api/v1/health", "health", false},
	}
	for _, tt := range tests {
		if got := pathMatch(tt.path, tt.pattern); got != tt.want {
			t.Errorf("pathMatch(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
	if !methodMatch("DELETE", "ANY") || methodMatch("GET", "POST") {
		t.Error("unexpected method match")
	}
}
