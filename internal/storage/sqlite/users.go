package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

const userColumns = `id, email, role, is_admin, display_name, photo_url, is_verified, is_banned, banned_at, last_login, created_at`

func scanUser(row rowScanner) (models.User, error) {
	var (
		u                         models.User
		role                      string
		bannedAt, lastLogin       sql.NullInt64
		createdAt                 int64
		isAdmin, verified, banned int
	)
	if err := row.Scan(
		&u.ID, &u.Email, &role, &isAdmin, &u.DisplayName, &u.PhotoURL,
		&verified, &banned, &bannedAt, &lastLogin, &createdAt,
	); err != nil {
		return models.User{}, err
	}
	u.Role = models.Role(role)
	u.IsAdmin = isAdmin == 1
	u.IsVerified = verified == 1
	u.IsBanned = banned == 1
	u.BannedAt = fromNullMillis(bannedAt)
	u.LastLogin = fromNullMillis(lastLogin)
	u.CreatedAt = fromMillis(createdAt)
	return u, nil
}

func loadStringColumn(ctx context.Context, q queryer, query, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// loadUserSets fills the liked and blocked sets of u.
func loadUserSets(ctx context.Context, q queryer, u *models.User) error {
	liked, err := loadStringColumn(ctx, q,
		`SELECT article_id FROM user_liked_articles WHERE user_id = ? ORDER BY created_at, rowid`, u.ID)
	if err != nil {
		return fmt.Errorf("load liked articles: %w", err)
	}
	blocked, err := loadStringColumn(ctx, q,
		`SELECT blocked_user_id FROM user_blocked_users WHERE user_id = ? ORDER BY created_at, rowid`, u.ID)
	if err != nil {
		return fmt.Errorf("load blocked users: %w", err)
	}
	u.LikedArticles = liked
	u.BlockedUsers = blocked
	return nil
}

// CreateUser inserts a user document. Liked and blocked sets start empty.
func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, string(u.Role), boolInt(u.IsAdmin), u.DisplayName, u.PhotoURL,
		boolInt(u.IsVerified), boolInt(u.IsBanned), nullMillis(u.BannedAt), nullMillis(u.LastLogin),
		toMillis(u.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser returns one user document with its sets.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	u, err := scanUser(s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return models.User{}, notFound(err)
	}
	if err := loadUserSets(ctx, s.sqlDB, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// UpdateUser applies the non-nil fields of update.
func (s *Store) UpdateUser(ctx context.Context, id string, update storage.UserUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *update.DisplayName)
	}
	if update.PhotoURL != nil {
		sets = append(sets, "photo_url = ?")
		args = append(args, *update.PhotoURL)
	}
	if update.Role != nil {
		sets = append(sets, "role = ?", "is_admin = ?")
		args = append(args, string(*update.Role), boolInt(*update.Role == models.RoleAdmin))
	}
	if update.IsVerified != nil {
		sets = append(sets, "is_verified = ?")
		args = append(args, boolInt(*update.IsVerified))
	}
	if update.LastLogin != nil {
		sets = append(sets, "last_login = ?")
		args = append(args, toMillis(*update.LastLogin))
	}
	if len(sets) == 0 {
		var found int
		err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&found)
		return notFound(err)
	}

	args = append(args, id)
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return requireRow(res, err, "update user")
}

// DeleteUser removes the user document and its sets.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return requireRow(res, err, "delete user")
}

// ListUsers returns users newest first, filtered by query when set.
func (s *Store) ListUsers(ctx context.Context, query string) ([]models.User, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if query != "" && !containsFold(u.Email, query) && !containsFold(u.DisplayName, query) {
			continue
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	// The single connection must be released before the set queries.
	rows.Close()

	for i := range users {
		if err := loadUserSets(ctx, s.sqlDB, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// CountUsers counts all user documents.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
