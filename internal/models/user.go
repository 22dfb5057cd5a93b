package models

import (
	"slices"
	"time"
)

// Role is the access level of a user.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the profile document keyed by the identity uid.
//
// IsAdmin is the legacy flag kept for documents written before Role existed.
// New writes go through SetRole so both fields agree.
type User struct {
	ID            string     `json:"id" bson:"_id"`
	Email         string     `json:"email" bson:"email"`
	Role          Role       `json:"role" bson:"role"`
	IsAdmin       bool       `json:"isAdmin" bson:"isAdmin"`
	DisplayName   string     `json:"displayName" bson:"displayName"`
	PhotoURL      string     `json:"photoURL" bson:"photoURL"`
	LikedArticles []string   `json:"likedArticles" bson:"likedArticles"`
	IsVerified    bool       `json:"isVerified" bson:"isVerified"`
	BlockedUsers  []string   `json:"blockedUsers" bson:"blockedUsers"`
	IsBanned      bool       `json:"isBanned" bson:"isBanned"`
	BannedAt      *time.Time `json:"bannedAt,omitempty" bson:"bannedAt,omitempty"`
	LastLogin     *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
}

// SetRole writes the role and the legacy flag together.
func (u *User) SetRole(role Role) {
	u.Role = role
	u.IsAdmin = role == RoleAdmin
}

// EffectiveRole derives the role: the role field wins when it says Admin,
// otherwise the legacy flag can still grant it.
func (u User) EffectiveRole() Role {
	if u.Role == RoleAdmin || u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// HasLiked reports whether articleID is in the liked list.
func (u User) HasLiked(articleID string) bool {
	return slices.Contains(u.LikedArticles, articleID)
}

// HasBlocked reports whether userID is in the blocked list.
func (u User) HasBlocked(userID string) bool {
	return slices.Contains(u.BlockedUsers, userID)
}
