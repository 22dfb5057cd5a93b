package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
)

func (s *Store) CreateArticle(ctx context.Context, a models.Article) error {
	return insert(ctx, s.col(colArticles), a)
}

func (s *Store) GetArticle(ctx context.Context, id string) (models.Article, error) {
	return findOne[models.Article](ctx, s.col(colArticles), bson.M{"_id": id})
}

// UpdateArticle rewrites the editable fields and leaves the counters alone.
func (s *Store) UpdateArticle(ctx context.Context, a models.Article) error {
	return updateByID(ctx, s.col(colArticles), a.ID, bson.M{"$set": bson.M{
		"title":     a.Title,
		"content":   a.Content,
		"category":  a.Category,
		"status":    a.Status,
		"date":      a.Date,
		"imageUrl":  a.ImageURL,
		"updatedAt": a.UpdatedAt,
	}})
}

func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(colArticles), id)
}

func (s *Store) ListArticles(ctx context.Context, filter storage.ArticleFilter) ([]models.Article, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Query != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(filter.Query), "$options": "i"}
		query["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"content": pattern}}
	}
	return findAll[models.Article](ctx, s.col(colArticles), query,
		bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
}

func (s *Store) CountArticles(ctx context.Context, category string) (int, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	return count(ctx, s.col(colArticles), filter)
}

func (s *Store) SetCommentsCount(ctx context.Context, id string, n int) error {
	return updateByID(ctx, s.col(colArticles), id, bson.M{"$set": bson.M{"commentsCount": n}})
}

// LikeArticle adds to the liked set and increments likes in one transaction.
func (s *Store) LikeArticle(ctx context.Context, userID, articleID string) (int, error) {
	var likes int
	err := s.inTx(ctx, "like", func(sc mongo.SessionContext) error {
		res, err := s.col(colUsers).UpdateOne(sc,
			bson.M{"_id": userID, "likedArticles": bson.M{"$ne": articleID}},
			bson.M{"$addToSet": bson.M{"likedArticles": articleID}},
		)
		if err != nil {
			return fmt.Errorf("record like: %w", err)
		}
		if res.MatchedCount == 0 {
			if _, err := findOne[models.User](sc, s.col(colUsers), bson.M{"_id": userID}); err != nil {
				return err
			}
			return storage.ErrAlreadyLiked
		}

		var article models.Article
		err = s.col(colArticles).FindOneAndUpdate(sc,
			bson.M{"_id": articleID},
			bson.M{"$inc": bson.M{"likes": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&article)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("increment likes: %w", err)
		}
		likes = article.Likes
		return nil
	})
	if err != nil {
		return 0, err
	}
	return likes, nil
}
