package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/accounts"
	"github.com/bilgisen/firenews/internal/middleware"
)

// Me handles GET /me
func (h *Handlers) Me(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	user, err := h.Accounts.Profile(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user, "session": sess})
}

// UpdateMe handles PATCH /me
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	user, err := h.Accounts.UpdateProfile(c.UserContext(), middleware.SessionFrom(c), *middleware.Body[accounts.ProfileInput](c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// ListUsers handles GET /admin/users?q=
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.Accounts.List(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(items(users))
}

// CreateUser handles POST /admin/users
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	user, err := h.Accounts.Create(c.UserContext(), *middleware.Body[accounts.CreateInput](c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateUser handles PUT /admin/users/:id
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	user, err := h.Accounts.Update(c.UserContext(), c.Params("id"), *middleware.Body[accounts.UpdateInput](c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// VerifyUser handles POST /admin/users/:id/verify
func (h *Handlers) VerifyUser(c *fiber.Ctx) error {
	user, err := h.Accounts.Verify(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /admin/users/:id
func (h *Handlers) DeleteUser(c *fiber.Ctx) error {
	if err := h.Accounts.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
