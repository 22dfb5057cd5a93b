package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/accounts"
	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/feed"
	"github.com/bilgisen/firenews/internal/media"
	"github.com/bilgisen/firenews/internal/news"
	"github.com/bilgisen/firenews/internal/session"
)

const version = "1.0.0"

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the HTTP handlers.
type Deps struct {
	Store     Pinger
	Auth      *auth.Service
	Sessions  *session.Manager
	News      *news.Service
	Accounts  *accounts.Service
	Feed      *feed.Feed
	Media     *media.Service
	KeepAlive time.Duration
}

type Handlers struct {
	Deps
	// streams end when ctx does; it outlives single requests.
	ctx context.Context
}

// NewHandlers builds the handlers. ctx bounds the lifetime of event streams.
func NewHandlers(ctx context.Context, deps Deps) *Handlers {
	if deps.KeepAlive <= 0 {
		deps.KeepAlive = 15 * time.Second
	}
	return &Handlers{Deps: deps, ctx: ctx}
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	code := fiber.StatusOK
	if err := h.Store.Ping(c.UserContext()); err != nil {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"version": version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

// NotFound is the catch-all for unknown endpoints.
func (h *Handlers) NotFound(c *fiber.Ctx) error {
	return apperr.NotFound("endpoint not found")
}

func items[T any](list []T) fiber.Map {
	if list == nil {
		list = []T{}
	}
	return fiber.Map{"items": list, "total": len(list)}
}
