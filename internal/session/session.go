// Package session derives the per-request session from an identity and the
// stored user document.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/firenews/internal/auth"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

// Session is the identity plus the facts derived from its user document.
// The zero value is an anonymous session.
type Session struct {
	UID           string      `json:"uid"`
	Email         string      `json:"email"`
	DisplayName   string      `json:"displayName"`
	PhotoURL      string      `json:"photoURL"`
	Role          models.Role `json:"role"`
	IsAdmin       bool        `json:"isAdmin"`
	IsVerified    bool        `json:"isVerified"`
	IsBanned      bool        `json:"isBanned"`
	LikedArticles []string    `json:"likedArticles"`
}

// Authenticated reports whether the session has an identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.UID != ""
}

// HasLiked reports whether articleID is in the session's liked set.
func (s *Session) HasLiked(articleID string) bool {
	return s != nil && slices.Contains(s.LikedArticles, articleID)
}

// Verifier dispatches the address-confirmation e-mail.
type Verifier interface {
	SendVerification(ctx context.Context, id auth.Identity) error
}

// Manager builds sessions. Role precedence: the role field when it says
// Admin, otherwise the legacy isAdmin flag.
type Manager struct {
	users          storage.UserStore
	verifier       Verifier
	bootstrapEmail string
	log            zerolog.Logger
	now            func() time.Time
}

func NewManager(users storage.UserStore, verifier Verifier, bootstrapEmail string) *Manager {
	return &Manager{
		users:          users,
		verifier:       verifier,
		bootstrapEmail: strings.ToLower(strings.TrimSpace(bootstrapEmail)),
		log:            logger.Component("session"),
		now:            time.Now,
	}
}

func (m *Manager) isBootstrap(email string) bool {
	return m.bootstrapEmail != "" && strings.EqualFold(strings.TrimSpace(email), m.bootstrapEmail)
}

// Bootstrap runs on sign-in and session restore: it reads or creates the user
// document and rewrites lastLogin. Store failures are logged and answered with
// a session where only the bootstrap address is admin.
func (m *Manager) Bootstrap(ctx context.Context, id auth.Identity) *Session {
	user, created, err := m.readOrCreate(ctx, id)
	if err != nil {
		m.log.Error().Err(err).Str("uid", id.UID).Msg("Session bootstrap failed, using fallback role")
		return m.fallback(id)
	}

	if !created {
		now := m.now().UTC()
		if err := m.users.UpdateUser(ctx, id.UID, storage.UserUpdate{LastLogin: &now}); err != nil {
			m.log.Error().Err(err).Str("uid", id.UID).Msg("Failed to record last login, using fallback role")
			return m.fallback(id)
		}
		user.LastLogin = &now
	}
	return fromUser(id, user)
}

// Load builds the session for one request without touching lastLogin.
func (m *Manager) Load(ctx context.Context, id auth.Identity) *Session {
	user, err := m.users.GetUser(ctx, id.UID)
	if errors.Is(err, storage.ErrNotFound) {
		return m.Bootstrap(ctx, id)
	}
	if err != nil {
		m.log.Error().Err(err).Str("uid", id.UID).Msg("Failed to load user, using fallback role")
		return m.fallback(id)
	}
	return fromUser(id, user)
}

func (m *Manager) readOrCreate(ctx context.Context, id auth.Identity) (models.User, bool, error) {
	user, err := m.users.GetUser(ctx, id.UID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.User{}, false, fmt.Errorf("read user: %w", err)
	}

	admin := m.isBootstrap(id.Email)
	now := m.now().UTC()
	user = models.User{
		ID:            id.UID,
		Email:         id.Email,
		DisplayName:   defaultDisplayName(id),
		PhotoURL:      id.PhotoURL,
		IsVerified:    admin,
		LikedArticles: []string{},
		BlockedUsers:  []string{},
		LastLogin:     &now,
		CreatedAt:     now,
	}
	if admin {
		user.SetRole(models.RoleAdmin)
	} else {
		user.SetRole(models.RoleUser)
	}

	if err := m.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Another request created it first; that one sends the e-mail.
			user, err = m.users.GetUser(ctx, id.UID)
			if err != nil {
				return models.User{}, false, fmt.Errorf("re-read user: %w", err)
			}
			return user, false, nil
		}
		return models.User{}, false, fmt.Errorf("create user: %w", err)
	}

	if !admin && m.verifier != nil {
		if err := m.verifier.SendVerification(ctx, id); err != nil {
			m.log.Warn().Err(err).Str("uid", id.UID).Msg("Failed to send verification email")
		}
	}
	m.log.Info().Str("uid", id.UID).Str("role", string(user.Role)).Msg("User document created")
	return user, true, nil
}

func (m *Manager) fallback(id auth.Identity) *Session {
	admin := m.isBootstrap(id.Email)
	role := models.RoleUser
	if admin {
		role = models.RoleAdmin
	}
	return &Session{
		UID:           id.UID,
		Email:         id.Email,
		DisplayName:   defaultDisplayName(id),
		PhotoURL:      id.PhotoURL,
		Role:          role,
		IsAdmin:       admin,
		IsVerified:    admin,
		LikedArticles: []string{},
	}
}

func fromUser(id auth.Identity, u models.User) *Session {
	role := u.EffectiveRole()
	liked := u.LikedArticles
	if liked == nil {
		liked = []string{}
	}
	name := u.DisplayName
	if name == "" {
		name = defaultDisplayName(id)
	}
	return &Session{
		UID:           id.UID,
		Email:         id.Email,
		DisplayName:   name,
		PhotoURL:      u.PhotoURL,
		Role:          role,
		IsAdmin:       role == models.RoleAdmin,
		IsVerified:    u.IsVerified,
		IsBanned:      u.IsBanned,
		LikedArticles: liked,
	}
}

func defaultDisplayName(id auth.Identity) string {
	if strings.TrimSpace(id.DisplayName) != "" {
		return id.DisplayName
	}
	local, _, _ := strings.Cut(id.Email, "@")
	return local
}
