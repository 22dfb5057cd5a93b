package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/storage"
)

const revokedPrefix = "revoked:"

// Claims are the session token claims. Subject carries the uid.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(id Identity) (string, error) {
	now := s.now()
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", apperr.Internal("failed to issue session", err)
	}
	return signed, nil
}

func (s *Service) parseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthenticated("session expired")
		}
		return nil, apperr.Unauthenticated("invalid session token")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, apperr.Unauthenticated("invalid session token")
	}
	return claims, nil
}

// Verify validates a session token and returns its identity.
func (s *Service) Verify(ctx context.Context, raw string) (Identity, error) {
	claims, err := s.parseToken(raw)
	if err != nil {
		return Identity{}, err
	}

	revoked, err := s.cache.Exists(ctx, revokedPrefix+claims.ID)
	if err != nil {
		return Identity{}, apperr.Internal("failed to check session", err)
	}
	if revoked {
		return Identity{}, apperr.Unauthenticated("session has been signed out")
	}

	cred, err := s.store.GetCredential(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Identity{}, apperr.Unauthenticated("account no longer exists")
		}
		return Identity{}, apperr.Internal("failed to check session", err)
	}
	return identityOf(cred), nil
}

// SignOut revokes the token until it would have expired.
func (s *Service) SignOut(ctx context.Context, raw string) error {
	claims, err := s.parseToken(raw)
	if err != nil {
		return err
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, revokedPrefix+claims.ID, "1", ttl); err != nil {
		return apperr.Internal("failed to sign out", err)
	}
	return nil
}
