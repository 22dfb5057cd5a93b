package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

const credentialColumns = `uid, email, password_hash, provider, subject, display_name, photo_url, created_at, updated_at`

func scanCredential(row rowScanner) (models.Credential, error) {
	var (
		c                    models.Credential
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&c.UID, &c.Email, &c.PasswordHash, &c.Provider, &c.Subject,
		&c.DisplayName, &c.PhotoURL, &createdAt, &updatedAt,
	); err != nil {
		return models.Credential{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// CreateCredential inserts a credential. Duplicate e-mails are rejected.
func (s *Store) CreateCredential(ctx context.Context, c models.Credential) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO credentials (`+credentialColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UID, strings.ToLower(c.Email), c.PasswordHash, c.Provider, c.Subject,
		c.DisplayName, c.PhotoURL, toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, uid string) (models.Credential, error) {
	c, err := scanCredential(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE uid = ?`, uid))
	if err != nil {
		return models.Credential{}, notFound(err)
	}
	return c, nil
}

func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (models.Credential, error) {
	c, err := scanCredential(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE email = ?`, strings.ToLower(email)))
	if err != nil {
		return models.Credential{}, notFound(err)
	}
	return c, nil
}

func (s *Store) GetCredentialBySubject(ctx context.Context, provider, subject string) (models.Credential, error) {
	c, err := scanCredential(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE provider = ? AND subject = ?`, provider, subject))
	if err != nil {
		return models.Credential{}, notFound(err)
	}
	return c, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, uid, hash string, at time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE credentials SET password_hash = ?, updated_at = ? WHERE uid = ?`, hash, toMillis(at), uid)
	return requireRow(res, err, "update password")
}

func (s *Store) DeleteCredential(ctx context.Context, uid string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM credentials WHERE uid = ?`, uid)
	return requireRow(res, err, "delete credential")
}
