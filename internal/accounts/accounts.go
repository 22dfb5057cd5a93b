// Package accounts implements user administration and the profile page.
package accounts

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/session"
	"github.com/bilgisen/firenews/internal/storage"
)

const avatarFolder = "avatars"

// Identities creates and removes sign-in credentials.
type Identities interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (auth.Identity, error)
	DeleteAccount(ctx context.Context, uid string) error
}

// Images stores uploaded pictures.
type Images interface {
	UploadImage(ctx context.Context, folder, filename, contentType string, size int64, body io.Reader) (string, error)
}

type Service struct {
	users      storage.UserStore
	identities Identities
	images     Images
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(users storage.UserStore, identities Identities, images Images) *Service {
	return &Service{
		users:      users,
		identities: identities,
		images:     images,
		log:        logger.Component("accounts"),
		now:        time.Now,
	}
}

// CreateInput is an admin-created account.
type CreateInput struct {
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required"`
	DisplayName string      `json:"displayName"`
	Role        models.Role `json:"role"`
}

// UpdateInput edits an account from the admin console. Nil fields are kept.
type UpdateInput struct {
	DisplayName *string      `json:"displayName"`
	Role        *models.Role `json:"role"`
}

// ProfileInput edits the caller's own profile. Nil fields are kept.
type ProfileInput struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

func (s *Service) getUser(ctx context.Context, id string) (models.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Internal("failed to load user", err)
	}
	return u, nil
}

func (s *Service) updateUser(ctx context.Context, id string, update storage.UserUpdate) (models.User, error) {
	if err := s.users.UpdateUser(ctx, id, update); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.User{}, apperr.NotFound("user not found")
		}
		return models.User{}, apperr.Internal("failed to update user", err)
	}
	return s.getUser(ctx, id)
}

// List returns users newest first, optionally filtered by e-mail or name.
func (s *Service) List(ctx context.Context, query string) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, apperr.Internal("failed to load users", err)
	}
	return users, nil
}

// Create registers a credential and writes the user document with the given role.
func (s *Service) Create(ctx context.Context, in CreateInput) (models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return models.User{}, apperr.Validation("role must be Admin or User")
	}

	id, err := s.identities.CreateAccount(ctx, in.Email, in.Password, in.DisplayName)
	if err != nil {
		return models.User{}, err
	}

	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(id.Email, "@")
	}
	u := models.User{
		ID:            id.UID,
		Email:         id.Email,
		DisplayName:   name,
		LikedArticles: []string{},
		BlockedUsers:  []string{},
		CreatedAt:     s.now().UTC(),
	}
	u.SetRole(in.Role)

	if err := s.users.CreateUser(ctx, u); err != nil {
		if delErr := s.identities.DeleteAccount(ctx, id.UID); delErr != nil {
			s.log.Error().Err(delErr).Str("uid", id.UID).Msg("Failed to remove orphaned credential")
		}
		return models.User{}, apperr.Internal("failed to create user", err)
	}
	s.log.Info().Str("uid", u.ID).Str("role", string(u.Role)).Msg("User created by admin")
	return u, nil
}

// Update changes display name and role. The role goes through the single
// setter that keeps the legacy admin flag in step.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (models.User, error) {
	var update storage.UserUpdate
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		update.DisplayName = &name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return models.User{}, apperr.Validation("role must be Admin or User")
		}
		update.Role = in.Role
	}
	return s.updateUser(ctx, id, update)
}

func (s *Service) Verify(ctx context.Context, id string) (models.User, error) {
	verified := true
	return s.updateUser(ctx, id, storage.UserUpdate{IsVerified: &verified})
}

// Delete removes the user document and its credential.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to delete user", err)
	}
	if err := s.identities.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("uid", id).Msg("User deleted")
	return nil
}

// Profile returns the caller's user document.
func (s *Service) Profile(ctx context.Context, sess *session.Session) (models.User, error) {
	if !sess.Authenticated() {
		return models.User{}, apperr.Unauthenticated("sign in required")
	}
	return s.getUser(ctx, sess.UID)
}

func (s *Service) UpdateProfile(ctx context.Context, sess *session.Session, in ProfileInput) (models.User, error) {
	if !sess.Authenticated() {
		return models.User{}, apperr.Unauthenticated("sign in required")
	}
	var update storage.UserUpdate
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return models.User{}, apperr.Validation("display name cannot be empty")
		}
		update.DisplayName = &name
	}
	if in.PhotoURL != nil {
		photo := strings.TrimSpace(*in.PhotoURL)
		update.PhotoURL = &photo
	}
	return s.updateUser(ctx, sess.UID, update)
}

// UploadAvatar stores the image and points the caller's photo at it.
func (s *Service) UploadAvatar(ctx context.Context, sess *session.Session, filename, contentType string, size int64, body io.Reader) (models.User, error) {
	if !sess.Authenticated() {
		return models.User{}, apperr.Unauthenticated("sign in required")
	}
	url, err := s.images.UploadImage(ctx, avatarFolder, filename, contentType, size, body)
	if err != nil {
		return models.User{}, err
	}
	return s.updateUser(ctx, sess.UID, storage.UserUpdate{PhotoURL: &url})
}
