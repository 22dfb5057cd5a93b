package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/middleware"
)

// Credentials are checked by the identity service so its notices reach the
// caller unchanged.
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type resetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// signedIn runs the session bootstrap and answers with the token and session.
func (h *Handlers) signedIn(c *fiber.Ctx, status int, id auth.Identity, token string) error {
	sess := h.Sessions.Bootstrap(c.UserContext(), id)
	return c.Status(status).JSON(fiber.Map{
		"token":   token,
		"session": sess,
	})
}

// Register handles POST /auth/register
func (h *Handlers) Register(c *fiber.Ctx) error {
	req := middleware.Body[registerRequest](c)
	id, token, err := h.Auth.Register(c.UserContext(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return err
	}
	return h.signedIn(c, fiber.StatusCreated, id, token)
}

// Login handles POST /auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	req := middleware.Body[loginRequest](c)
	id, token, err := h.Auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.signedIn(c, fiber.StatusOK, id, token)
}

// Logout handles POST /auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if err := h.Auth.SignOut(c.UserContext(), middleware.TokenFrom(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestoreSession handles POST /auth/session: the token is re-validated and
// the session bootstrap runs again.
func (h *Handlers) RestoreSession(c *fiber.Ctx) error {
	token := middleware.TokenFrom(c)
	if token == "" {
		return apperr.Unauthenticated("sign in required")
	}
	id, err := h.Auth.Verify(c.UserContext(), token)
	if err != nil {
		return err
	}
	return h.signedIn(c, fiber.StatusOK, id, token)
}

// RequestPasswordReset handles POST /auth/password/reset
func (h *Handlers) RequestPasswordReset(c *fiber.Ctx) error {
	req := middleware.Body[emailRequest](c)
	if err := h.Auth.SendPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "if the address has an account, a reset link is on its way",
	})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm
func (h *Handlers) ConfirmPasswordReset(c *fiber.Ctx) error {
	req := middleware.Body[resetConfirmRequest](c)
	if err := h.Auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword handles POST /auth/password/change
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	req := middleware.Body[changePasswordRequest](c)
	sess := middleware.SessionFrom(c)
	if err := h.Auth.ChangePassword(c.UserContext(), sess.UID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SendVerification handles POST /auth/verify/send
func (h *Handlers) SendVerification(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	if sess.IsVerified {
		return apperr.Conflict("email already verified")
	}
	id := auth.Identity{UID: sess.UID, Email: sess.Email, DisplayName: sess.DisplayName}
	if err := h.Auth.SendVerification(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// ConfirmVerification handles POST /auth/verify/confirm
func (h *Handlers) ConfirmVerification(c *fiber.Ctx) error {
	req := middleware.Body[tokenRequest](c)
	uid, err := h.Auth.ConfirmVerification(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"uid": uid, "isVerified": true})
}

// OAuthStart handles GET /auth/oauth/:provider
func (h *Handlers) OAuthStart(c *fiber.Ctx) error {
	url, err := h.Auth.AuthCodeURL(c.UserContext(), c.Params("provider"))
	if err != nil {
		return err
	}
	return c.Redirect(url, fiber.StatusFound)
}

// OAuthCallback handles GET /auth/oauth/:provider/callback
func (h *Handlers) OAuthCallback(c *fiber.Ctx) error {
	if msg := c.Query("error"); msg != "" {
		return apperr.Unauthenticated("sign-in was cancelled: " + msg)
	}
	id, token, err := h.Auth.CompleteOAuth(c.UserContext(), c.Params("provider"), c.Query("state"), c.Query("code"))
	if err != nil {
		return err
	}
	return h.signedIn(c, fiber.StatusOK, id, token)
}
