package models

import "time"

// ReactionType names an emoji reaction.
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionHaha  ReactionType = "haha"
	ReactionWow   ReactionType = "wow"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
)

// Reaction is declared on comments but no operation writes it yet.
type Reaction struct {
	Type    ReactionType `json:"type" bson:"type"`
	Count   int          `json:"count" bson:"count"`
	UserIDs []string     `json:"userIds" bson:"userIds"`
}

// Comment is a top-level comment or a reply (IsReply with ParentID set).
type Comment struct {
	ID              string     `json:"id" bson:"_id"`
	Text            string     `json:"text" bson:"text"`
	NewsID          string     `json:"newsId" bson:"newsId"`
	UserID          string     `json:"userId" bson:"userId"`
	UserDisplayName string     `json:"userDisplayName" bson:"userDisplayName"`
	UserPhotoURL    string     `json:"userPhotoURL" bson:"userPhotoURL"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	IsReply         bool       `json:"isReply" bson:"isReply"`
	ParentID        string     `json:"parentId,omitempty" bson:"parentId,omitempty"`
	Reactions       []Reaction `json:"reactions" bson:"reactions"`
	IsReported      bool       `json:"isReported" bson:"isReported"`
	ReportedBy      string     `json:"reportedBy,omitempty" bson:"reportedBy,omitempty"`
	ReportedAt      *time.Time `json:"reportedAt,omitempty" bson:"reportedAt,omitempty"`
}

// ThreadComment is a top-level comment with its replies, oldest first.
type ThreadComment struct {
	Comment
	Replies []Comment `json:"replies"`
}
