package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/feed"
	"github.com/bilgisen/firenews/internal/middleware"
)

type blockRequest struct {
	Confirm bool `json:"confirm"`
}

// GetComments handles GET /news/:id/comments
func (h *Handlers) GetComments(c *fiber.Ctx) error {
	snap, err := h.Feed.Thread(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// StreamComments handles GET /news/:id/comments/stream. Every snapshot also
// stores the thread total on the article.
func (h *Handlers) StreamComments(c *fiber.Ctx) error {
	articleID := c.Params("id")
	if _, err := h.News.Article(c.UserContext(), middleware.SessionFrom(c), articleID); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(h.ctx)
	sub := h.Feed.WatchThread(ctx, articleID, func(total int) {
		h.News.SetCommentsCount(ctx, articleID, total)
	})
	return stream(c, cancel, sub, h.KeepAlive)
}

// PostComment handles POST /news/:id/comments
func (h *Handlers) PostComment(c *fiber.Ctx) error {
	in := middleware.Body[feed.PostInput](c)
	comment, err := h.Feed.PostComment(c.UserContext(), middleware.SessionFrom(c), c.Params("id"), *in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ReportComment handles POST /comments/:id/report
func (h *Handlers) ReportComment(c *fiber.Ctx) error {
	if err := h.Feed.ReportComment(c.UserContext(), middleware.SessionFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BlockUser handles POST /users/:id/block
func (h *Handlers) BlockUser(c *fiber.Ctx) error {
	req := middleware.Body[blockRequest](c)
	if err := h.Feed.BlockUser(c.UserContext(), middleware.SessionFrom(c), c.Params("id"), req.Confirm); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListNotifications handles GET /admin/notifications
func (h *Handlers) ListNotifications(c *fiber.Ctx) error {
	snap, err := h.Feed.Moderation(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// StreamNotifications handles GET /admin/notifications/stream
func (h *Handlers) StreamNotifications(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(h.ctx)
	return stream(c, cancel, h.Feed.WatchNotifications(ctx), h.KeepAlive)
}

// MarkNotificationRead handles POST /admin/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *fiber.Ctx) error {
	if err := h.Feed.MarkNotificationRead(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteReportedComment handles POST /admin/notifications/:id/delete-comment
func (h *Handlers) DeleteReportedComment(c *fiber.Ctx) error {
	if err := h.Feed.DeleteReportedComment(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BanReportedUser handles POST /admin/notifications/:id/ban-user
func (h *Handlers) BanReportedUser(c *fiber.Ctx) error {
	if err := h.Feed.BanReportedUser(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
