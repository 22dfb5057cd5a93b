package sqlite

import (
	"context"
	"fmt"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

func scanCategory(row rowScanner) (models.Category, error) {
	var (
		c         models.Category
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &createdAt); err != nil {
		return models.Category{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

// CreateCategory inserts one category.
func (s *Store) CreateCategory(ctx context.Context, c models.Category) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Slug, toMillis(c.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetCategory returns one category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (models.Category, error) {
	c, err := scanCategory(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE id = ?`, id))
	if err != nil {
		return models.Category{}, notFound(err)
	}
	return c, nil
}

// UpdateCategory rewrites name and slug.
func (s *Store) UpdateCategory(ctx context.Context, c models.Category) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ? WHERE id = ?`, c.Name, c.Slug, c.ID)
	return requireRow(res, err, "update category")
}

// DeleteCategory removes a category. Articles keep the name they carry.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return requireRow(res, err, "delete category")
}

// ListCategories returns all categories, newest first.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, slug, created_at FROM categories ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// CountCategories counts all categories.
func (s *Store) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}
