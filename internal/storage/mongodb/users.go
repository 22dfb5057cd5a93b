package mongodb

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

// CreateUser inserts the document with empty arrays so $addToSet applies.
func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	if u.LikedArticles == nil {
		u.LikedArticles = []string{}
	}
	if u.BlockedUsers == nil {
		u.BlockedUsers = []string{}
	}
	return insert(ctx, s.col(colUsers), u)
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	return findOne[models.User](ctx, s.col(colUsers), bson.M{"_id": id})
}

func (s *Store) UpdateUser(ctx context.Context, id string, update storage.UserUpdate) error {
	set := bson.M{}
	if update.DisplayName != nil {
		set["displayName"] = *update.DisplayName
	}
	if update.PhotoURL != nil {
		set["photoURL"] = *update.PhotoURL
	}
	if update.Role != nil {
		set["role"] = *update.Role
		set["isAdmin"] = *update.Role == models.RoleAdmin
	}
	if update.IsVerified != nil {
		set["isVerified"] = *update.IsVerified
	}
	if update.LastLogin != nil {
		set["lastLogin"] = update.LastLogin.UTC()
	}
	if len(set) == 0 {
		_, err := s.GetUser(ctx, id)
		return err
	}
	return updateByID(ctx, s.col(colUsers), id, bson.M{"$set": set})
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(colUsers), id)
}

func (s *Store) ListUsers(ctx context.Context, query string) ([]models.User, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(query); q != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"email": pattern}, bson.M{"displayName": pattern}}
	}
	return findAll[models.User](ctx, s.col(colUsers), filter, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return count(ctx, s.col(colUsers), bson.M{})
}

func (s *Store) CreateCredential(ctx context.Context, c models.Credential) error {
	c.Email = strings.ToLower(c.Email)
	return insert(ctx, s.col(colCredentials), c)
}

func (s *Store) GetCredential(ctx context.Context, uid string) (models.Credential, error) {
	return findOne[models.Credential](ctx, s.col(colCredentials), bson.M{"_id": uid})
}

func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (models.Credential, error) {
	return findOne[models.Credential](ctx, s.col(colCredentials), bson.M{"email": strings.ToLower(email)})
}

func (s *Store) GetCredentialBySubject(ctx context.Context, provider, subject string) (models.Credential, error) {
	return findOne[models.Credential](ctx, s.col(colCredentials), bson.M{"provider": provider, "subject": subject})
}

func (s *Store) UpdatePasswordHash(ctx context.Context, uid, hash string, at time.Time) error {
	return updateByID(ctx, s.col(colCredentials), uid, bson.M{"$set": bson.M{"passwordHash": hash, "updatedAt": at}})
}

func (s *Store) DeleteCredential(ctx context.Context, uid string) error {
	return deleteByID(ctx, s.col(colCredentials), uid)
}
