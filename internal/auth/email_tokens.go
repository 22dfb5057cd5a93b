package auth

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/cache"
	"github.com/bilgisen/firenews/internal/mail"
	"github.com/bilgisen/firenews/internal/storage"
	"github.com/bilgisen/firenews/internal/utils"
)

const (
	resetPrefix  = "reset:"
	verifyPrefix = "verify:"

	resetTTL  = time.Hour
	verifyTTL = 24 * time.Hour
)

// newEmailToken stores the hash of a fresh token under prefix and returns the token.
func (s *Service) newEmailToken(ctx context.Context, prefix, uid string, ttl time.Duration) (string, error) {
	token, err := utils.RandomToken(32)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, prefix+utils.Hash(token), uid, ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) redeemEmailToken(ctx context.Context, prefix, token string) (string, error) {
	if token == "" {
		return "", apperr.Validation("invalid or expired token")
	}
	uid, err := s.cache.Take(ctx, prefix+utils.Hash(token))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return "", apperr.Validation("invalid or expired token")
		}
		return "", apperr.Internal("failed to check token", err)
	}
	return uid, nil
}

func (s *Service) link(path, token string) string {
	return s.cfg.PublicBaseURL + path + "?token=" + url.QueryEscape(token)
}

// SendPasswordReset mails a reset link. Unknown addresses succeed silently.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return err
	}
	cred, err := s.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Debug().Str("email", email).Msg("Password reset requested for unknown address")
			return nil
		}
		return apperr.Internal("failed to send password reset", err)
	}

	token, err := s.newEmailToken(ctx, resetPrefix, cred.UID, resetTTL)
	if err != nil {
		return apperr.Internal("failed to send password reset", err)
	}
	if err := s.mailer.Send(ctx, mail.PasswordResetEmail(cred.Email, s.link("/reset-password", token))); err != nil {
		return apperr.Internal("failed to send password reset", err)
	}
	return nil
}

// ConfirmPasswordReset redeems a reset token and sets the new password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	uid, err := s.redeemEmailToken(ctx, resetPrefix, token)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, uid, password)
}

// SendVerification mails an address-confirmation link.
func (s *Service) SendVerification(ctx context.Context, id Identity) error {
	token, err := s.newEmailToken(ctx, verifyPrefix, id.UID, verifyTTL)
	if err != nil {
		return apperr.Internal("failed to send verification email", err)
	}
	if err := s.mailer.Send(ctx, mail.VerificationEmail(id.Email, s.link("/verify-email", token))); err != nil {
		return apperr.Internal("failed to send verification email", err)
	}
	return nil
}

// ConfirmVerification redeems a verification token and marks the user verified.
func (s *Service) ConfirmVerification(ctx context.Context, token string) (string, error) {
	uid, err := s.redeemEmailToken(ctx, verifyPrefix, token)
	if err != nil {
		return "", err
	}
	verified := true
	if err := s.store.UpdateUser(ctx, uid, storage.UserUpdate{IsVerified: &verified}); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.NotFound("user not found")
		}
		return "", apperr.Internal("failed to verify email", err)
	}
	return uid, nil
}
