// Package feed implements the live comment threads and the moderation queue.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/session"
	"github.com/bilgisen/firenews/internal/storage"
)

const defaultReplyFetchLimit = 8

// Store is the persistence the feed needs.
type Store interface {
	storage.CommentStore
	storage.ModerationStore
	GetArticle(ctx context.Context, id string) (models.Article, error)
	GetUser(ctx context.Context, id string) (models.User, error)
}

type Feed struct {
	store      Store
	hub        *Hub
	bus        Bus
	replyLimit int
	log        zerolog.Logger
	now        func() time.Time
}

// New builds a feed whose watchers listen on hub and whose writes are
// announced on bus.
func New(store Store, hub *Hub, bus Bus) *Feed {
	return &Feed{
		store:      store,
		hub:        hub,
		bus:        bus,
		replyLimit: defaultReplyFetchLimit,
		log:        logger.Component("feed"),
		now:        time.Now,
	}
}

// PostInput is a new comment or, with ParentID set, a reply.
type PostInput struct {
	Text     string `json:"text"`
	ParentID string `json:"parentId"`
}

func (f *Feed) announce(ctx context.Context, topics ...string) {
	for _, topic := range topics {
		if err := f.bus.Publish(ctx, topic); err != nil {
			f.log.Warn().Err(err).Str("topic", topic).Msg("Failed to announce change")
		}
	}
}

func authorName(sess *session.Session) string {
	if sess.DisplayName != "" {
		return sess.DisplayName
	}
	if local, _, _ := strings.Cut(sess.Email, "@"); local != "" {
		return local
	}
	return "Anonymous"
}

// PostComment appends a comment to an article's thread.
func (f *Feed) PostComment(ctx context.Context, sess *session.Session, articleID string, in PostInput) (models.Comment, error) {
	if !sess.Authenticated() {
		return models.Comment{}, apperr.Unauthenticated("sign in to comment")
	}
	if sess.IsBanned {
		return models.Comment{}, apperr.Forbidden("your account has been banned")
	}
	if strings.TrimSpace(in.Text) == "" {
		return models.Comment{}, apperr.Validation("comment cannot be empty")
	}

	if _, err := f.store.GetArticle(ctx, articleID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Comment{}, apperr.NotFound("article not found")
		}
		return models.Comment{}, apperr.Internal("failed to post comment", err)
	}

	c := models.Comment{
		ID:              uuid.NewString(),
		Text:            in.Text,
		NewsID:          articleID,
		UserID:          sess.UID,
		UserDisplayName: authorName(sess),
		UserPhotoURL:    sess.PhotoURL,
		CreatedAt:       f.now().UTC(),
		Reactions:       []models.Reaction{},
	}
	if in.ParentID != "" {
		parent, err := f.store.GetComment(ctx, in.ParentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return models.Comment{}, apperr.NotFound("parent comment not found")
			}
			return models.Comment{}, apperr.Internal("failed to post reply", err)
		}
		if parent.IsReply || parent.NewsID != articleID {
			return models.Comment{}, apperr.Validation("replies must target a top-level comment of the same article")
		}
		c.IsReply = true
		c.ParentID = parent.ID
	}

	if err := f.store.CreateComment(ctx, c); err != nil {
		return models.Comment{}, apperr.Internal("failed to post comment", err)
	}
	f.announce(ctx, ThreadTopic(articleID))
	return c, nil
}

// ReportComment flags a comment and queues a report for the admins. Repeated
// reports each queue a notification.
func (f *Feed) ReportComment(ctx context.Context, sess *session.Session, commentID string) error {
	if !sess.Authenticated() {
		return apperr.Unauthenticated("sign in to report comments")
	}
	c, err := f.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("comment not found")
		}
		return apperr.Internal("failed to report comment", err)
	}

	now := f.now().UTC()
	n := models.Notification{
		ID:        uuid.NewString(),
		Type:      models.NotificationCommentReport,
		CommentID: c.ID,
		UserID:    c.UserID,
		ActorID:   sess.UID,
		ActorName: authorName(sess),
		NewsID:    c.NewsID,
		CreatedAt: now,
	}
	if err := f.store.ReportComment(ctx, c.ID, sess.UID, now, n); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("comment not found")
		}
		return apperr.Internal("failed to report comment", err)
	}
	f.log.Info().Str("comment_id", c.ID).Str("reporter", sess.UID).Msg("Comment reported")
	f.announce(ctx, ThreadTopic(c.NewsID), TopicModeration)
	return nil
}

// BlockUser records that the caller blocked another user. The caller must
// have confirmed the action.
func (f *Feed) BlockUser(ctx context.Context, sess *session.Session, blockedID string, confirmed bool) error {
	if !sess.Authenticated() {
		return apperr.Unauthenticated("sign in to block users")
	}
	if !confirmed {
		return apperr.Validation("blocking a user must be confirmed")
	}
	if blockedID == sess.UID {
		return apperr.Validation("you cannot block yourself")
	}
	if _, err := f.store.GetUser(ctx, blockedID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to block user", err)
	}

	n := models.Notification{
		ID:        uuid.NewString(),
		Type:      models.NotificationUserBlocked,
		UserID:    blockedID,
		ActorID:   sess.UID,
		ActorName: authorName(sess),
		CreatedAt: f.now().UTC(),
	}
	if err := f.store.BlockUser(ctx, sess.UID, blockedID, n); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to block user", err)
	}
	f.log.Info().Str("blocker", sess.UID).Str("blocked", blockedID).Msg("User blocked")
	f.announce(ctx, TopicModeration)
	return nil
}

// DeleteReportedComment removes the comment behind a notification, with its
// replies, and resolves the notification.
func (f *Feed) DeleteReportedComment(ctx context.Context, notificationID string) error {
	newsID, err := f.store.DeleteCommentAndResolve(ctx, notificationID)
	if err != nil {
		if errors.Is(err, storage.ErrNoComment) {
			return apperr.Validation("notification has no comment")
		}
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("failed to delete comment", err)
	}
	f.log.Info().Str("notification_id", notificationID).Msg("Reported comment deleted")
	topics := []string{TopicModeration}
	if newsID != "" {
		topics = append(topics, ThreadTopic(newsID))
	}
	f.announce(ctx, topics...)
	return nil
}

// BanReportedUser bans the user behind a notification and resolves it.
func (f *Feed) BanReportedUser(ctx context.Context, notificationID string) error {
	if err := f.store.BanUserAndResolve(ctx, notificationID, f.now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("notification or user not found")
		}
		return apperr.Internal("failed to ban user", err)
	}
	f.log.Info().Str("notification_id", notificationID).Msg("Reported user banned")
	f.announce(ctx, TopicModeration)
	return nil
}

func (f *Feed) MarkNotificationRead(ctx context.Context, notificationID string) error {
	if err := f.store.MarkNotificationRead(ctx, notificationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return apperr.Internal("failed to update notification", err)
	}
	f.announce(ctx, TopicModeration)
	return nil
}
