package news

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/storage"
	"github.com/bilgisen/firenews/internal/utils"
)

// CategoryInput is the editable part of a category. An empty slug is derived
// from the name.
type CategoryInput struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug"`
}

func (in *CategoryInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("category name is required")
	}
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = utils.Slugify(in.Name)
	}
	return nil
}

// Categories lists categories newest first with their article counts.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to load categories", err)
	}
	for i := range categories {
		n, err := s.postCount(ctx, categories[i].Name)
		if err != nil {
			return nil, apperr.Internal("failed to count category articles", err)
		}
		categories[i].PostCount = n
	}
	return categories, nil
}

// CategoryNames lists category names for public filters.
func (s *Service) CategoryNames(ctx context.Context) ([]string, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to load categories", err)
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names, nil
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (models.Category, error) {
	if err := in.normalize(); err != nil {
		return models.Category{}, err
	}
	c := models.Category{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Slug:      in.Slug,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return models.Category{}, apperr.Internal("failed to create category", err)
	}
	return c, nil
}

// UpdateCategory renames a category. Articles keep the name they were saved with.
func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (models.Category, error) {
	if err := in.normalize(); err != nil {
		return models.Category{}, err
	}
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Category{}, apperr.NotFound("category not found")
		}
		return models.Category{}, apperr.Internal("failed to load category", err)
	}
	c.Name = in.Name
	c.Slug = in.Slug
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Category{}, apperr.NotFound("category not found")
		}
		return models.Category{}, apperr.Internal("failed to update category", err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("category not found")
		}
		return apperr.Internal("failed to delete category", err)
	}
	return nil
}
