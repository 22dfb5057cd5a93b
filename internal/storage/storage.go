// Package storage defines the persistence contracts of the document store.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/firenews/internal/models"
)

var (
	// ErrNotFound indicates a requested document is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness-constrained document already exists.
	ErrConflict = errors.New("record already exists")
	// ErrAlreadyLiked indicates the user's liked set already holds the article.
	ErrAlreadyLiked = errors.New("already liked")
	// ErrNoComment indicates a notification that does not point at a comment.
	ErrNoComment = errors.New("notification has no comment")
)

// ArticleFilter narrows ListArticles. Zero values match everything.
// Query is a case-insensitive substring over title and content.
type ArticleFilter struct {
	Status   models.ArticleStatus
	Category string
	Query    string
}

// ArticleStore persists articles. Lists are ordered by date, newest first.
type ArticleStore interface {
	CreateArticle(ctx context.Context, article models.Article) error
	GetArticle(ctx context.Context, id string) (models.Article, error)
	UpdateArticle(ctx context.Context, article models.Article) error
	DeleteArticle(ctx context.Context, id string) error
	ListArticles(ctx context.Context, filter ArticleFilter) ([]models.Article, error)
	// CountArticles counts articles in category, or all articles when category is empty.
	CountArticles(ctx context.Context, category string) (int, error)
	SetCommentsCount(ctx context.Context, id string, count int) error
	// LikeArticle adds articleID to the user's liked set and increments the
	// article's likes in one transaction, returning the new total.
	LikeArticle(ctx context.Context, userID, articleID string) (int, error)
}

// CategoryStore persists categories. Lists are ordered by createdAt, newest first.
type CategoryStore interface {
	CreateCategory(ctx context.Context, category models.Category) error
	GetCategory(ctx context.Context, id string) (models.Category, error)
	UpdateCategory(ctx context.Context, category models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	CountCategories(ctx context.Context) (int, error)
}

// UserUpdate is a partial update of a user document. Nil fields are left alone.
// Setting Role also rewrites the legacy admin flag.
type UserUpdate struct {
	DisplayName *string
	PhotoURL    *string
	Role        *models.Role
	IsVerified  *bool
	LastLogin   *time.Time
}

// UserStore persists user documents keyed by uid.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) error
	DeleteUser(ctx context.Context, id string) error
	// ListUsers returns users newest first, optionally matching query against
	// e-mail and display name.
	ListUsers(ctx context.Context, query string) ([]models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// CredentialStore persists identity-service credentials. E-mails are unique.
type CredentialStore interface {
	CreateCredential(ctx context.Context, credential models.Credential) error
	GetCredential(ctx context.Context, uid string) (models.Credential, error)
	GetCredentialByEmail(ctx context.Context, email string) (models.Credential, error)
	GetCredentialBySubject(ctx context.Context, provider, subject string) (models.Credential, error)
	UpdatePasswordHash(ctx context.Context, uid, hash string, at time.Time) error
	DeleteCredential(ctx context.Context, uid string) error
}

// CommentStore persists comments and the report composite.
type CommentStore interface {
	CreateComment(ctx context.Context, comment models.Comment) error
	GetComment(ctx context.Context, id string) (models.Comment, error)
	// ListTopLevelComments returns non-reply comments of an article, newest first.
	ListTopLevelComments(ctx context.Context, newsID string) ([]models.Comment, error)
	// ListReplies returns the replies of a parent comment, oldest first.
	ListReplies(ctx context.Context, parentID string) ([]models.Comment, error)
	// ReportComment flags the comment and inserts the report notification atomically.
	ReportComment(ctx context.Context, commentID, reporterID string, at time.Time, notification models.Notification) error
}

// ModerationStore persists notifications and the moderation composites.
type ModerationStore interface {
	GetNotification(ctx context.Context, id string) (models.Notification, error)
	// ListNotifications returns every notification, newest first.
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	// BlockUser adds blockedID to the blocker's set and inserts the
	// notification atomically. Repeated blocks keep one entry.
	BlockUser(ctx context.Context, blockerID, blockedID string, notification models.Notification) error
	// DeleteCommentAndResolve hard-deletes the notification's comment with its
	// replies and marks the notification read. It returns the article id.
	DeleteCommentAndResolve(ctx context.Context, notificationID string) (string, error)
	// BanUserAndResolve bans the notification's user and marks it read.
	BanUserAndResolve(ctx context.Context, notificationID string, at time.Time) error
}

// Store is the full document store.
type Store interface {
	ArticleStore
	CategoryStore
	UserStore
	CredentialStore
	CommentStore
	ModerationStore
	Ping(ctx context.Context) error
	Close() error
}
