package models

import "time"

// Category groups articles by name. PostCount is computed on read.
type Category struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Slug      string    `json:"slug" bson:"slug"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	PostCount int       `json:"postCount" bson:"-"`
}

// DashboardStats are the headline counts of the admin console.
type DashboardStats struct {
	TotalUsers      int `json:"totalUsers"`
	TotalArticles   int `json:"totalArticles"`
	TotalCategories int `json:"totalCategories"`
}
