package models

import "time"

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "Draft"
	StatusPublished ArticleStatus = "Published"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// DateLayout is the calendar-day format of Article.Date.
const DateLayout = "2006-01-02"

// Article is a news item. Category holds the category name, not its id.
type Article struct {
	ID            string        `json:"id" bson:"_id"`
	Title         string        `json:"title" bson:"title"`
	Content       string        `json:"content" bson:"content"`
	Category      string        `json:"category" bson:"category"`
	Status        ArticleStatus `json:"status" bson:"status"`
	Date          string        `json:"date" bson:"date"`
	ImageURL      string        `json:"imageUrl" bson:"imageUrl"`
	Likes         int           `json:"likes" bson:"likes"`
	CommentsCount int           `json:"commentsCount" bson:"commentsCount"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Published reports whether readers outside the admin console may see it.
func (a Article) Published() bool {
	return a.Status == StatusPublished
}
