package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/session"
)

// Locals keys set by the auth middleware.
const (
	SessionKey = "session"
	TokenKey   = "token"
)

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Identity, error)
}

// SessionLoader builds the per-request session of a verified identity.
type SessionLoader interface {
	Load(ctx context.Context, id auth.Identity) *session.Session
}

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
	// Next defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Verifier validates bearer tokens.
	// Required.
	Verifier TokenVerifier

	// Sessions loads the session of a verified identity.
	// Required.
	Sessions SessionLoader

	// Header is the header the token is read from.
	// Optional. Default: "Authorization"
	Header string
}

// NewAuth resolves the bearer token, if any, into a session. Requests without
// a token continue as anonymous; an invalid token is rejected.
func NewAuth(cfg AuthConfig) fiber.Handler {
	if cfg.Header == "" {
		cfg.Header = fiber.HeaderAuthorization
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		raw := strings.TrimSpace(c.Get(cfg.Header))
		if raw == "" {
			c.Locals(SessionKey, &session.Session{})
			return c.Next()
		}
		token := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))

		id, err := cfg.Verifier.Verify(c.UserContext(), token)
		if err != nil {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Err(err).
				Msg("Authentication failed")
			return err
		}

		c.Locals(TokenKey, token)
		c.Locals(SessionKey, cfg.Sessions.Load(c.UserContext(), id))
		return c.Next()
	}
}

// SessionFrom returns the request's session. It is anonymous when the auth
// middleware did not run or found no token.
func SessionFrom(c *fiber.Ctx) *session.Session {
	if s, ok := c.Locals(SessionKey).(*session.Session); ok && s != nil {
		return s
	}
	return &session.Session{}
}

// TokenFrom returns the bearer token of the request, if any.
func TokenFrom(c *fiber.Ctx) string {
	token, _ := c.Locals(TokenKey).(string)
	return token
}

// RequireSession rejects anonymous requests.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !SessionFrom(c).Authenticated() {
			return apperr.Unauthenticated("sign in required")
		}
		return c.Next()
	}
}
