// Package auth is the identity service: credentials, session tokens,
// federated sign-in and the e-mail token flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/cache"
	"github.com/bilgisen/firenews/internal/config"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/mail"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

const minPasswordLength = 6

// Identity is the authenticated principal behind a session token.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Provider    string `json:"provider"`
}

// Store is the persistence the identity service needs.
type Store interface {
	storage.CredentialStore
	UpdateUser(ctx context.Context, id string, update storage.UserUpdate) error
}

// Service implements the identity operations.
type Service struct {
	cfg       *config.Config
	store     Store
	cache     cache.Cache
	mailer    mail.Sender
	http      *resty.Client
	providers map[string]*provider
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
	hashCost  int
}

func NewService(cfg *config.Config, store Store, c cache.Cache, mailer mail.Sender) *Service {
	s := &Service{
		cfg:      cfg,
		store:    store,
		cache:    c,
		mailer:   mailer,
		http:     resty.New().SetTimeout(cfg.HTTPTimeout),
		validate: validator.New(),
		log:      logger.Component("auth"),
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
	s.providers = buildProviders(cfg)
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) checkEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return apperr.Validation("invalid email")
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("weak password")
	}
	return nil
}

func identityOf(c models.Credential) Identity {
	return Identity{UID: c.UID, Email: c.Email, DisplayName: c.DisplayName, PhotoURL: c.PhotoURL, Provider: c.Provider}
}

// CreateAccount registers an e-mail/password credential without signing in.
func (s *Service) CreateAccount(ctx context.Context, email, password, displayName string) (Identity, error) {
	email = normalizeEmail(email)
	if err := s.checkEmail(email); err != nil {
		return Identity{}, err
	}
	if err := checkPassword(password); err != nil {
		return Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return Identity{}, apperr.Internal("failed to create account", err)
	}

	now := s.now().UTC()
	cred := models.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     models.ProviderPassword,
		DisplayName:  strings.TrimSpace(displayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Identity{}, apperr.Conflict("email already in use")
		}
		return Identity{}, apperr.Internal("failed to create account", err)
	}
	return identityOf(cred), nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (Identity, string, error) {
	id, err := s.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		return Identity{}, "", err
	}
	token, err := s.issueToken(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}

// SignIn checks an e-mail/password pair and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (Identity, string, error) {
	cred, err := s.store.GetCredentialByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Identity{}, "", apperr.Unauthenticated("invalid credentials")
		}
		return Identity{}, "", apperr.Internal("failed to sign in", err)
	}
	if cred.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return Identity{}, "", apperr.Unauthenticated("invalid credentials")
	}

	id := identityOf(cred)
	token, err := s.issueToken(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}

// ChangePassword re-authenticates with the current password before updating it.
func (s *Service) ChangePassword(ctx context.Context, uid, current, next, confirm string) error {
	if next != confirm {
		return apperr.Validation("passwords do not match")
	}
	if err := checkPassword(next); err != nil {
		return err
	}

	cred, err := s.store.GetCredential(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.Unauthenticated("account no longer exists")
		}
		return apperr.Internal("failed to change password", err)
	}
	if cred.PasswordHash == "" {
		return apperr.Validation("password sign-in is not enabled for this account")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(current)) != nil {
		return apperr.Unauthenticated("wrong password")
	}

	return s.setPassword(ctx, uid, next)
}

func (s *Service) setPassword(ctx context.Context, uid, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return apperr.Internal("failed to change password", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, uid, string(hash), s.now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("account not found")
		}
		return apperr.Internal("failed to change password", err)
	}
	return nil
}

// DeleteAccount removes the credential behind uid.
func (s *Service) DeleteAccount(ctx context.Context, uid string) error {
	if err := s.store.DeleteCredential(ctx, uid); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return apperr.Internal("failed to delete account", err)
	}
	return nil
}

// SeedBootstrapAdmin creates the bootstrap admin credential when a password
// is configured and the address has no account yet.
func (s *Service) SeedBootstrapAdmin(ctx context.Context) error {
	if s.cfg.BootstrapAdminPassword == "" {
		return nil
	}
	email := normalizeEmail(s.cfg.BootstrapAdminEmail)
	_, err := s.store.GetCredentialByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}
	if _, err := s.CreateAccount(ctx, email, s.cfg.BootstrapAdminPassword, "Admin"); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.log.Info().Str("email", email).Msg("Bootstrap admin account created")
	return nil
}
