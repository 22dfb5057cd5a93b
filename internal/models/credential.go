package models

import "time"

// Identity providers
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderGitHub   = "github"
)

// Credential is the identity-service record behind a uid.
// Subject is the provider's account id for federated logins.
type Credential struct {
	UID          string    `json:"uid" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Provider     string    `json:"provider" bson:"provider"`
	Subject      string    `json:"subject,omitempty" bson:"subject,omitempty"`
	DisplayName  string    `json:"displayName" bson:"displayName"`
	PhotoURL     string    `json:"photoURL" bson:"photoURL"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}
