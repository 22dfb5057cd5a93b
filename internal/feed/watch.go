package feed

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bilgisen/firenews/internal/models"
)

// ThreadSnapshot is the full comment thread of an article at one moment.
type ThreadSnapshot struct {
	ArticleID string                 `json:"articleId"`
	Comments  []models.ThreadComment `json:"comments"`
	Total     int                    `json:"total"`
}

// ModerationSnapshot is the moderation queue, newest first.
type ModerationSnapshot struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// Thread loads the current thread of an article.
func (f *Feed) Thread(ctx context.Context, articleID string) (ThreadSnapshot, error) {
	top, err := f.store.ListTopLevelComments(ctx, articleID)
	if err != nil {
		return ThreadSnapshot{}, fmt.Errorf("list comments: %w", err)
	}

	comments := make([]models.ThreadComment, len(top))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.replyLimit)
	for i, c := range top {
		i, c := i, c
		g.Go(func() error {
			replies, err := f.store.ListReplies(gctx, c.ID)
			if err != nil {
				return fmt.Errorf("list replies of %s: %w", c.ID, err)
			}
			comments[i] = models.ThreadComment{Comment: c, Replies: replies}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ThreadSnapshot{}, err
	}

	total := len(comments)
	for _, c := range comments {
		total += len(c.Replies)
	}
	return ThreadSnapshot{ArticleID: articleID, Comments: comments, Total: total}, nil
}

// Moderation loads the current moderation queue.
func (f *Feed) Moderation(ctx context.Context) (ModerationSnapshot, error) {
	notifications, err := f.store.ListNotifications(ctx)
	if err != nil {
		return ModerationSnapshot{}, fmt.Errorf("list notifications: %w", err)
	}
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	return ModerationSnapshot{Notifications: notifications, Unread: unread}, nil
}

// WatchThread streams thread snapshots of an article: one now and one after
// every change. onCount, if set, receives the total of every delivered
// snapshot.
func (f *Feed) WatchThread(ctx context.Context, articleID string, onCount func(total int)) *Subscription[ThreadSnapshot] {
	return watch(ctx, f, ThreadTopic(articleID), func(ctx context.Context) (ThreadSnapshot, error) {
		return f.Thread(ctx, articleID)
	}, func(s ThreadSnapshot) {
		if onCount != nil {
			onCount(s.Total)
		}
	})
}

// WatchNotifications streams the moderation queue.
func (f *Feed) WatchNotifications(ctx context.Context) *Subscription[ModerationSnapshot] {
	return watch(ctx, f, TopicModeration, f.Moderation, nil)
}

func watch[T any](ctx context.Context, f *Feed, topic string, load func(context.Context) (T, error), after func(T)) *Subscription[T] {
	sub, ctx := newSubscription[T](ctx)
	changes, unsubscribe := f.hub.subscribe(topic)

	go func() {
		defer sub.finish()
		defer unsubscribe()

		for {
			snap, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				f.log.Error().Err(err).Str("topic", topic).Msg("Failed to load snapshot")
			} else {
				sub.emit(snap)
				if after != nil {
					after(snap)
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-changes:
			}
		}
	}()
	return sub
}
