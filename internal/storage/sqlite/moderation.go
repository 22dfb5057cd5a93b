package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

const notificationColumns = `id, type, comment_id, user_id, actor_id, actor_name, news_id, read, created_at`

func scanNotification(row rowScanner) (models.Notification, error) {
	var (
		n         models.Notification
		kind      string
		read      int
		createdAt int64
	)
	if err := row.Scan(
		&n.ID, &kind, &n.CommentID, &n.UserID, &n.ActorID, &n.ActorName, &n.NewsID, &read, &createdAt,
	); err != nil {
		return models.Notification{}, err
	}
	n.Type = models.NotificationType(kind)
	n.Read = read == 1
	n.CreatedAt = fromMillis(createdAt)
	return n, nil
}

func insertNotification(ctx context.Context, q queryer, n models.Notification) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.Type), n.CommentID, n.UserID, n.ActorID, n.ActorName, n.NewsID,
		boolInt(n.Read), toMillis(n.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func getNotification(ctx context.Context, q queryer, id string) (models.Notification, error) {
	n, err := scanNotification(q.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	if err != nil {
		return models.Notification{}, notFound(err)
	}
	return n, nil
}

func markRead(ctx context.Context, q queryer, id string) error {
	res, err := q.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return requireRow(res, err, "mark notification read")
}

func (s *Store) GetNotification(ctx context.Context, id string) (models.Notification, error) {
	return getNotification(ctx, s.sqlDB, id)
}

// ListNotifications returns the whole moderation queue, newest first.
func (s *Store) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	return markRead(ctx, s.sqlDB, id)
}

// BlockUser records the block and its notification together.
func (s *Store) BlockUser(ctx context.Context, blockerID, blockedID string, n models.Notification) error {
	return s.inTx(ctx, "block", func(tx *sql.Tx) error {
		var found int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, blockerID).Scan(&found); err != nil {
			return notFound(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_blocked_users (user_id, blocked_user_id, created_at) VALUES (?, ?, ?)`,
			blockerID, blockedID, toMillis(n.CreatedAt),
		); err != nil {
			return fmt.Errorf("record block: %w", err)
		}
		return insertNotification(ctx, tx, n)
	})
}

// DeleteCommentAndResolve removes the reported comment with its replies and
// marks the notification read. A comment that is already gone is not an error.
func (s *Store) DeleteCommentAndResolve(ctx context.Context, notificationID string) (string, error) {
	var newsID string
	err := s.inTx(ctx, "delete comment", func(tx *sql.Tx) error {
		n, err := getNotification(ctx, tx, notificationID)
		if err != nil {
			return err
		}
		if n.CommentID == "" {
			return fmt.Errorf("notification %s: %w", notificationID, storage.ErrNoComment)
		}
		newsID = n.NewsID
		if newsID == "" {
			if err := tx.QueryRowContext(ctx,
				`SELECT news_id FROM comments WHERE id = ?`, n.CommentID).Scan(&newsID); err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("read comment article: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM comments WHERE id = ? OR parent_id = ?`, n.CommentID, n.CommentID,
		); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		return markRead(ctx, tx, notificationID)
	})
	if err != nil {
		return "", err
	}
	return newsID, nil
}

// BanUserAndResolve bans the implicated user and marks the notification read.
func (s *Store) BanUserAndResolve(ctx context.Context, notificationID string, at time.Time) error {
	return s.inTx(ctx, "ban", func(tx *sql.Tx) error {
		n, err := getNotification(ctx, tx, notificationID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET is_banned = 1, banned_at = ? WHERE id = ?`, toMillis(at), n.UserID)
		if err := requireRow(res, err, "ban user"); err != nil {
			return err
		}
		return markRead(ctx, tx, notificationID)
	})
}
