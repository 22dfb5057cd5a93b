package models

import "time"

// NotificationType names the moderation event behind a notification.
type NotificationType string

const (
	NotificationCommentReport NotificationType = "comment_report"
	NotificationUserBlocked   NotificationType = "user_blocked"
)

// Notification is one item of the admin moderation queue.
//
// For comment_report, UserID is the comment author and ActorID the reporter.
// For user_blocked, UserID is the blocked user and ActorID the blocker.
type Notification struct {
	ID        string           `json:"id" bson:"_id"`
	Type      NotificationType `json:"type" bson:"type"`
	CommentID string           `json:"commentId,omitempty" bson:"commentId,omitempty"`
	UserID    string           `json:"userId" bson:"userId"`
	ActorID   string           `json:"actorId" bson:"actorId"`
	ActorName string           `json:"actorName" bson:"actorName"`
	NewsID    string           `json:"newsId,omitempty" bson:"newsId,omitempty"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
	Read      bool             `json:"read" bson:"read"`
}
