package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

const commentColumns = `id, news_id, user_id, user_display_name, user_photo_url, text, is_reply, parent_id, reactions, is_reported, reported_by, reported_at, created_at`

func scanComment(row rowScanner) (models.Comment, error) {
	var (
		c                 models.Comment
		isReply, reported int
		reactions         string
		reportedAt        sql.NullInt64
		createdAt         int64
	)
	if err := row.Scan(
		&c.ID, &c.NewsID, &c.UserID, &c.UserDisplayName, &c.UserPhotoURL, &c.Text,
		&isReply, &c.ParentID, &reactions, &reported, &c.ReportedBy, &reportedAt, &createdAt,
	); err != nil {
		return models.Comment{}, err
	}
	c.IsReply = isReply == 1
	c.IsReported = reported == 1
	c.ReportedAt = fromNullMillis(reportedAt)
	c.CreatedAt = fromMillis(createdAt)
	if err := json.Unmarshal([]byte(reactions), &c.Reactions); err != nil {
		return models.Comment{}, fmt.Errorf("decode reactions: %w", err)
	}
	return c, nil
}

func (s *Store) queryComments(ctx context.Context, query string, args ...any) ([]models.Comment, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// CreateComment inserts one comment.
func (s *Store) CreateComment(ctx context.Context, c models.Comment) error {
	reactions := c.Reactions
	if reactions == nil {
		reactions = []models.Reaction{}
	}
	encoded, err := json.Marshal(reactions)
	if err != nil {
		return fmt.Errorf("encode reactions: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.NewsID, c.UserID, c.UserDisplayName, c.UserPhotoURL, c.Text,
		boolInt(c.IsReply), c.ParentID, string(encoded), boolInt(c.IsReported), c.ReportedBy,
		nullMillis(c.ReportedAt), toMillis(c.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetComment returns one comment by id.
func (s *Store) GetComment(ctx context.Context, id string) (models.Comment, error) {
	c, err := scanComment(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if err != nil {
		return models.Comment{}, notFound(err)
	}
	return c, nil
}

func (s *Store) ListTopLevelComments(ctx context.Context, newsID string) ([]models.Comment, error) {
	return s.queryComments(ctx,
		`SELECT `+commentColumns+` FROM comments
		 WHERE news_id = ? AND is_reply = 0
		 ORDER BY created_at DESC, rowid DESC`, newsID)
}

func (s *Store) ListReplies(ctx context.Context, parentID string) ([]models.Comment, error) {
	return s.queryComments(ctx,
		`SELECT `+commentColumns+` FROM comments
		 WHERE parent_id = ? AND is_reply = 1
		 ORDER BY created_at ASC, rowid ASC`, parentID)
}

// ReportComment flags the comment and records the notification together.
func (s *Store) ReportComment(ctx context.Context, commentID, reporterID string, at time.Time, n models.Notification) error {
	return s.inTx(ctx, "report", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE comments SET is_reported = 1, reported_by = ?, reported_at = ? WHERE id = ?`,
			reporterID, toMillis(at), commentID,
		)
		if err := requireRow(res, err, "flag comment"); err != nil {
			return err
		}
		return insertNotification(ctx, tx, n)
	})
}
