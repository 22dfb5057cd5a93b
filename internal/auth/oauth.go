package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/cache"
	"github.com/bilgisen/firenews/internal/config"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
	"github.com/bilgisen/firenews/internal/utils"
)

const (
	statePrefix = "oauth_state:"
	stateTTL    = 10 * time.Minute
)

var errUnverifiedEmail = errors.New("provider e-mail address is not verified")

type profile struct {
	Subject     string
	Email       string
	DisplayName string
	PhotoURL    string
}

type provider struct {
	name       string
	oauth      *oauth2.Config
	profileURL string
	// emailsURL lists addresses with their verification state.
	emailsURL string
}

func buildProviders(cfg *config.Config) map[string]*provider {
	callback := func(name string) string {
		return strings.TrimRight(cfg.PublicBaseURL, "/") + "/api/v1/auth/oauth/" + name + "/callback"
	}

	providers := make(map[string]*provider)
	if cfg.OAuthEnabled(models.ProviderGoogle) {
		providers[models.ProviderGoogle] = &provider{
			name: models.ProviderGoogle,
			oauth: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     endpoints.Google,
				RedirectURL:  callback(models.ProviderGoogle),
				Scopes:       []string{"openid", "email", "profile"},
			},
			profileURL: "https://openidconnect.googleapis.com/v1/userinfo",
		}
	}
	if cfg.OAuthEnabled(models.ProviderGitHub) {
		providers[models.ProviderGitHub] = &provider{
			name: models.ProviderGitHub,
			oauth: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				Endpoint:     endpoints.GitHub,
				RedirectURL:  callback(models.ProviderGitHub),
				Scopes:       []string{"read:user", "user:email"},
			},
			profileURL: "https://api.github.com/user",
			emailsURL:  "https://api.github.com/user/emails",
		}
	}
	return providers
}

func (s *Service) provider(name string) (*provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("sign-in provider %q is not enabled", name))
	}
	return p, nil
}

// AuthCodeURL starts a federated sign-in and returns the consent page URL.
func (s *Service) AuthCodeURL(ctx context.Context, name string) (string, error) {
	p, err := s.provider(name)
	if err != nil {
		return "", err
	}
	state, err := utils.RandomToken(24)
	if err != nil {
		return "", apperr.Internal("failed to start sign-in", err)
	}
	if err := s.cache.Set(ctx, statePrefix+state, name, stateTTL); err != nil {
		return "", apperr.Internal("failed to start sign-in", err)
	}
	return p.oauth.AuthCodeURL(state), nil
}

// CompleteOAuth exchanges the callback code, finds or creates the credential
// and issues a session token.
func (s *Service) CompleteOAuth(ctx context.Context, name, state, code string) (Identity, string, error) {
	p, err := s.provider(name)
	if err != nil {
		return Identity{}, "", err
	}

	stored, err := s.cache.Take(ctx, statePrefix+state)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return Identity{}, "", apperr.Unauthenticated("sign-in request expired")
		}
		return Identity{}, "", apperr.Internal("failed to complete sign-in", err)
	}
	if stored != name {
		return Identity{}, "", apperr.Unauthenticated("sign-in request expired")
	}
	if code == "" {
		return Identity{}, "", apperr.Unauthenticated("sign-in was cancelled")
	}

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Identity{}, "", apperr.Wrap(apperr.CodeUnauthenticated, "failed to exchange authorization code", err)
	}

	prof, err := s.fetchProfile(ctx, p, tok.AccessToken)
	if errors.Is(err, errUnverifiedEmail) {
		return Identity{}, "", apperr.Unauthenticated(errUnverifiedEmail.Error())
	}
	if err != nil {
		return Identity{}, "", apperr.Wrap(apperr.CodeUnauthenticated, "failed to fetch provider profile", err)
	}

	cred, err := s.credentialForProfile(ctx, p.name, prof)
	if err != nil {
		return Identity{}, "", err
	}
	id := identityOf(cred)
	token, err := s.issueToken(id)
	if err != nil {
		return Identity{}, "", err
	}
	return id, token, nil
}

func (s *Service) fetchProfile(ctx context.Context, p *provider, accessToken string) (profile, error) {
	req := s.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Accept", "application/json")

	var prof profile
	if p.name == models.ProviderGoogle {
		var payload struct {
			Sub           string `json:"sub"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
			Name          string `json:"name"`
			Picture       string `json:"picture"`
		}
		resp, err := req.SetResult(&payload).Get(p.profileURL)
		if err != nil {
			return profile{}, err
		}
		if resp.IsError() {
			return profile{}, fmt.Errorf("profile request failed with status %d", resp.StatusCode())
		}
		if payload.Email != "" && !payload.EmailVerified {
			return profile{}, errUnverifiedEmail
		}
		prof = profile{Subject: payload.Sub, Email: payload.Email, DisplayName: payload.Name, PhotoURL: payload.Picture}
	} else {
		var payload struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		resp, err := req.SetResult(&payload).Get(p.profileURL)
		if err != nil {
			return profile{}, err
		}
		if resp.IsError() {
			return profile{}, fmt.Errorf("profile request failed with status %d", resp.StatusCode())
		}
		prof = profile{Email: payload.Email, DisplayName: firstNonEmpty(payload.Name, payload.Login), PhotoURL: payload.AvatarURL}
		if payload.ID != 0 {
			prof.Subject = strconv.FormatInt(payload.ID, 10)
		}
	}

	// The public profile address is not vouched for; use the verified primary.
	if p.emailsURL != "" {
		email, err := s.primaryEmail(ctx, p.emailsURL, accessToken)
		if err != nil {
			return profile{}, err
		}
		prof.Email = email
	}
	if prof.Subject == "" {
		return profile{}, errors.New("missing provider user id")
	}
	if prof.Email == "" {
		return profile{}, errors.New("provider did not return an e-mail address")
	}
	return prof, nil
}

func (s *Service) primaryEmail(ctx context.Context, emailsURL, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Accept", "application/json").
		SetResult(&emails).
		Get(emailsURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("emails request failed with status %d", resp.StatusCode())
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

// credentialForProfile links by provider subject first, then by e-mail.
func (s *Service) credentialForProfile(ctx context.Context, name string, prof profile) (models.Credential, error) {
	cred, err := s.store.GetCredentialBySubject(ctx, name, prof.Subject)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Credential{}, apperr.Internal("failed to complete sign-in", err)
	}

	email := normalizeEmail(prof.Email)
	cred, err = s.store.GetCredentialByEmail(ctx, email)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Credential{}, apperr.Internal("failed to complete sign-in", err)
	}

	now := s.now().UTC()
	cred = models.Credential{
		UID:         uuid.NewString(),
		Email:       email,
		Provider:    name,
		Subject:     prof.Subject,
		DisplayName: prof.DisplayName,
		PhotoURL:    prof.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.Credential{}, apperr.Conflict("email already in use")
		}
		return models.Credential{}, apperr.Internal("failed to complete sign-in", err)
	}
	return cred, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
