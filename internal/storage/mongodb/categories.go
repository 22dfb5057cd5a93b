package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bilgisen/firenews/internal/models"
)

func (s *Store) CreateCategory(ctx context.Context, c models.Category) error {
	return insert(ctx, s.col(colCategories), c)
}

func (s *Store) GetCategory(ctx context.Context, id string) (models.Category, error) {
	return findOne[models.Category](ctx, s.col(colCategories), bson.M{"_id": id})
}

func (s *Store) UpdateCategory(ctx context.Context, c models.Category) error {
	return updateByID(ctx, s.col(colCategories), c.ID, bson.M{"$set": bson.M{"name": c.Name, "slug": c.Slug}})
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(colCategories), id)
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return findAll[models.Category](ctx, s.col(colCategories), bson.M{}, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *Store) CountCategories(ctx context.Context) (int, error) {
	return count(ctx, s.col(colCategories), bson.M{})
}
