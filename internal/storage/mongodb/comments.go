package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

func (s *Store) CreateComment(ctx context.Context, c models.Comment) error {
	if c.Reactions == nil {
		c.Reactions = []models.Reaction{}
	}
	return insert(ctx, s.col(colComments), c)
}

func (s *Store) GetComment(ctx context.Context, id string) (models.Comment, error) {
	return findOne[models.Comment](ctx, s.col(colComments), bson.M{"_id": id})
}

func (s *Store) ListTopLevelComments(ctx context.Context, newsID string) ([]models.Comment, error) {
	return findAll[models.Comment](ctx, s.col(colComments),
		bson.M{"newsId": newsID, "isReply": false}, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) ListReplies(ctx context.Context, parentID string) ([]models.Comment, error) {
	return findAll[models.Comment](ctx, s.col(colComments),
		bson.M{"parentId": parentID, "isReply": true}, bson.D{{Key: "createdAt", Value: 1}})
}

func (s *Store) ReportComment(ctx context.Context, commentID, reporterID string, at time.Time, n models.Notification) error {
	return s.inTx(ctx, "report", func(sc mongo.SessionContext) error {
		if err := updateByID(sc, s.col(colComments), commentID, bson.M{"$set": bson.M{
			"isReported": true,
			"reportedBy": reporterID,
			"reportedAt": at,
		}}); err != nil {
			return err
		}
		return insert(sc, s.col(colNotifications), n)
	})
}

func (s *Store) GetNotification(ctx context.Context, id string) (models.Notification, error) {
	return findOne[models.Notification](ctx, s.col(colNotifications), bson.M{"_id": id})
}

func (s *Store) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	return findAll[models.Notification](ctx, s.col(colNotifications), bson.M{}, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	return updateByID(ctx, s.col(colNotifications), id, bson.M{"$set": bson.M{"read": true}})
}

func (s *Store) BlockUser(ctx context.Context, blockerID, blockedID string, n models.Notification) error {
	return s.inTx(ctx, "block", func(sc mongo.SessionContext) error {
		if err := updateByID(sc, s.col(colUsers), blockerID,
			bson.M{"$addToSet": bson.M{"blockedUsers": blockedID}}); err != nil {
			return err
		}
		return insert(sc, s.col(colNotifications), n)
	})
}

func (s *Store) DeleteCommentAndResolve(ctx context.Context, notificationID string) (string, error) {
	var newsID string
	err := s.inTx(ctx, "delete comment", func(sc mongo.SessionContext) error {
		n, err := s.GetNotification(sc, notificationID)
		if err != nil {
			return err
		}
		if n.CommentID == "" {
			return fmt.Errorf("notification %s: %w", notificationID, storage.ErrNoComment)
		}
		newsID = n.NewsID
		if newsID == "" {
			if c, err := s.GetComment(sc, n.CommentID); err == nil {
				newsID = c.NewsID
			}
		}
		if _, err := s.col(colComments).DeleteMany(sc, bson.M{"$or": bson.A{
			bson.M{"_id": n.CommentID},
			bson.M{"parentId": n.CommentID},
		}}); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		return s.MarkNotificationRead(sc, notificationID)
	})
	if err != nil {
		return "", err
	}
	return newsID, nil
}

func (s *Store) BanUserAndResolve(ctx context.Context, notificationID string, at time.Time) error {
	return s.inTx(ctx, "ban", func(sc mongo.SessionContext) error {
		n, err := s.GetNotification(sc, notificationID)
		if err != nil {
			return err
		}
		if err := updateByID(sc, s.col(colUsers), n.UserID,
			bson.M{"$set": bson.M{"isBanned": true, "bannedAt": at}}); err != nil {
			return err
		}
		return s.MarkNotificationRead(sc, notificationID)
	})
}
