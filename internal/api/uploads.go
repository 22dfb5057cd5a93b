package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/middleware"
)

const newsImageFolder = "news"

// UploadImage handles POST /admin/uploads
func (h *Handlers) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Validation("file could not be read")
	}
	defer f.Close()

	url, err := h.Media.UploadImage(c.UserContext(), newsImageFolder, fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size, f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

// UploadAvatar handles POST /me/avatar
func (h *Handlers) UploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Validation("file could not be read")
	}
	defer f.Close()

	user, err := h.Accounts.UploadAvatar(c.UserContext(), middleware.SessionFrom(c), fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size, f)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
