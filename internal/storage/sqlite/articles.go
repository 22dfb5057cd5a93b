package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

const articleColumns = `id, title, content, category, status, date, image_url, likes, comments_count, created_at, updated_at`

func scanArticle(row rowScanner) (models.Article, error) {
	var (
		a                    models.Article
		status               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&a.ID, &a.Title, &a.Content, &a.Category, &status, &a.Date,
		&a.ImageURL, &a.Likes, &a.CommentsCount, &createdAt, &updatedAt,
	); err != nil {
		return models.Article{}, err
	}
	a.Status = models.ArticleStatus(status)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

// CreateArticle inserts one article.
func (s *Store) CreateArticle(ctx context.Context, a models.Article) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Content, a.Category, string(a.Status), a.Date,
		a.ImageURL, a.Likes, a.CommentsCount, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// GetArticle returns one article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (models.Article, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if err != nil {
		return models.Article{}, notFound(err)
	}
	return a, nil
}

// UpdateArticle rewrites the editable fields. Likes and comment counts have
// their own write paths and are left alone.
func (s *Store) UpdateArticle(ctx context.Context, a models.Article) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE articles
		   SET title = ?, content = ?, category = ?, status = ?, date = ?, image_url = ?, updated_at = ?
		 WHERE id = ?`,
		a.Title, a.Content, a.Category, string(a.Status), a.Date, a.ImageURL, toMillis(a.UpdatedAt), a.ID,
	)
	return requireRow(res, err, "update article")
}

// DeleteArticle removes an article. Its comments are left in place.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	return requireRow(res, err, "delete article")
}

// ListArticles returns articles matching filter, newest date first.
func (s *Store) ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]models.Article, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	query := `SELECT ` + articleColumns + ` FROM articles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		// SQLite LIKE only folds ASCII, so the search runs here.
		if filter.Query != "" && !containsFold(a.Title, filter.Query) && !containsFold(a.Content, filter.Query) {
			continue
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

// CountArticles counts articles in category, or all of them.
func (s *Store) CountArticles(ctx context.Context, category string) (int, error) {
	var (
		n   int
		err error
	)
	if category == "" {
		err = s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n)
	} else {
		err = s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE category = ?`, category).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// SetCommentsCount overwrites the article's comment count.
func (s *Store) SetCommentsCount(ctx context.Context, id string, count int) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE articles SET comments_count = ? WHERE id = ?`, count, id)
	return requireRow(res, err, "set comments count")
}

// LikeArticle records the like and bumps the counter in one transaction.
func (s *Store) LikeArticle(ctx context.Context, userID, articleID string) (int, error) {
	var likes int
	err := s.inTx(ctx, "like", func(tx *sql.Tx) error {
		var found int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&found); err != nil {
			return notFound(err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE articles SET likes = likes + 1 WHERE id = ?`, articleID)
		if err := requireRow(res, err, "increment likes"); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_liked_articles (user_id, article_id, created_at) VALUES (?, ?, ?)`,
			userID, articleID, toMillis(time.Now()),
		); err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyLiked
			}
			return fmt.Errorf("record like: %w", err)
		}

		if err := tx.QueryRowContext(ctx, `SELECT likes FROM articles WHERE id = ?`, articleID).Scan(&likes); err != nil {
			return fmt.Errorf("read likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return likes, nil
}
