// Package news serves articles, likes, categories and the admin dashboard.
package news

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bilgisen/firenews/internal/apperr"
	"github.com/bilgisen/firenews/internal/cache"
	"github.com/bilgisen/firenews/internal/logger"
	"github.com/bilgisen/firenews/internal/models"
	"github.com/bilgisen/firenews/internal/session"
	"github.com/bilgisen/firenews/internal/storage"
)

const categoryCountPrefix = "category_count:"

// Store is the persistence the news service needs.
type Store interface {
	storage.ArticleStore
	storage.CategoryStore
	CountUsers(ctx context.Context) (int, error)
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	DefaultImageURL  string
	CategoryCountTTL time.Duration
}

type Service struct {
	store        Store
	cache        cache.Cache
	validate     *validator.Validate
	defaultImage string
	countTTL     time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

func NewService(store Store, c cache.Cache, opts Options) *Service {
	if opts.CategoryCountTTL <= 0 {
		opts.CategoryCountTTL = time.Minute
	}
	return &Service{
		store:        store,
		cache:        c,
		validate:     validator.New(),
		defaultImage: opts.DefaultImageURL,
		countTTL:     opts.CategoryCountTTL,
		log:          logger.Component("news"),
		now:          time.Now,
	}
}

// ArticleInput is the editable part of an article.
type ArticleInput struct {
	Title    string               `json:"title" validate:"required"`
	Content  string               `json:"content" validate:"required"`
	Category string               `json:"category" validate:"required"`
	Status   models.ArticleStatus `json:"status"`
	Date     string               `json:"date"`
	ImageURL string               `json:"imageUrl"`
}

func (in *ArticleInput) normalize(v *validator.Validate, today string) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)
	if err := v.Struct(in); err != nil {
		return apperr.Validation("title, content and category are required")
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if !in.Status.Valid() {
		return apperr.Validation("status must be Draft or Published")
	}
	in.Date = strings.TrimSpace(in.Date)
	if in.Date == "" {
		in.Date = today
	}
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		return apperr.Validation("date must be formatted as YYYY-MM-DD")
	}
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	return nil
}

// Feed lists published articles, newest first.
func (s *Service) Feed(ctx context.Context, category, query string) ([]models.Article, error) {
	articles, err := s.store.ListArticles(ctx, storage.ArticleFilter{
		Status:   models.StatusPublished,
		Category: strings.TrimSpace(category),
		Query:    strings.TrimSpace(query),
	})
	if err != nil {
		return nil, apperr.Internal("failed to load news", err)
	}
	return articles, nil
}

// Article returns one article. Drafts are only visible to admins.
func (s *Service) Article(ctx context.Context, sess *session.Session, id string) (models.Article, error) {
	a, err := s.store.GetArticle(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Article{}, apperr.NotFound("article not found")
		}
		return models.Article{}, apperr.Internal("failed to load article", err)
	}
	if !a.Published() && (sess == nil || !sess.IsAdmin) {
		return models.Article{}, apperr.NotFound("article not found")
	}
	return a, nil
}

// Like records one like of articleID by the session's user and returns the
// new total.
func (s *Service) Like(ctx context.Context, sess *session.Session, articleID string) (int, error) {
	if !sess.Authenticated() {
		return 0, apperr.Unauthenticated("sign in to like articles")
	}
	if sess.HasLiked(articleID) {
		return 0, apperr.Conflict("already liked")
	}

	likes, err := s.store.LikeArticle(ctx, sess.UID, articleID)
	switch {
	case errors.Is(err, storage.ErrAlreadyLiked):
		return 0, apperr.Conflict("already liked")
	case errors.Is(err, storage.ErrNotFound):
		return 0, apperr.NotFound("article not found")
	case err != nil:
		return 0, apperr.Internal("failed to like article", err)
	}
	sess.LikedArticles = append(sess.LikedArticles, articleID)
	return likes, nil
}

// SetCommentsCount stores the live thread total on the article. Failures are
// only logged.
func (s *Service) SetCommentsCount(ctx context.Context, articleID string, count int) {
	if err := s.store.SetCommentsCount(ctx, articleID, count); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn().Err(err).Str("article_id", articleID).Int("count", count).Msg("Failed to store comment count")
	}
}

// AdminArticles lists every article regardless of status.
func (s *Service) AdminArticles(ctx context.Context, query string) ([]models.Article, error) {
	articles, err := s.store.ListArticles(ctx, storage.ArticleFilter{Query: strings.TrimSpace(query)})
	if err != nil {
		return nil, apperr.Internal("failed to load news", err)
	}
	return articles, nil
}

func (s *Service) CreateArticle(ctx context.Context, in ArticleInput) (models.Article, error) {
	now := s.now().UTC()
	if err := in.normalize(s.validate, now.Format(models.DateLayout)); err != nil {
		return models.Article{}, err
	}
	if in.ImageURL == "" {
		in.ImageURL = s.defaultImage
	}

	a := models.Article{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Category:  in.Category,
		Status:    in.Status,
		Date:      in.Date,
		ImageURL:  in.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateArticle(ctx, a); err != nil {
		return models.Article{}, apperr.Internal("failed to create article", err)
	}
	s.invalidateCounts(ctx)
	s.log.Info().Str("article_id", a.ID).Str("status", string(a.Status)).Msg("Article created")
	return a, nil
}

// UpdateArticle rewrites the editable fields. An empty image URL keeps the
// current one.
func (s *Service) UpdateArticle(ctx context.Context, id string, in ArticleInput) (models.Article, error) {
	now := s.now().UTC()
	if err := in.normalize(s.validate, now.Format(models.DateLayout)); err != nil {
		return models.Article{}, err
	}

	a, err := s.store.GetArticle(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Article{}, apperr.NotFound("article not found")
		}
		return models.Article{}, apperr.Internal("failed to load article", err)
	}
	a.Title = in.Title
	a.Content = in.Content
	a.Category = in.Category
	a.Status = in.Status
	a.Date = in.Date
	if in.ImageURL != "" {
		a.ImageURL = in.ImageURL
	}
	a.UpdatedAt = now

	if err := s.store.UpdateArticle(ctx, a); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Article{}, apperr.NotFound("article not found")
		}
		return models.Article{}, apperr.Internal("failed to update article", err)
	}
	s.invalidateCounts(ctx)
	return a, nil
}

// DeleteArticle removes the article. Its comments stay in the store.
func (s *Service) DeleteArticle(ctx context.Context, id string) error {
	if err := s.store.DeleteArticle(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("article not found")
		}
		return apperr.Internal("failed to delete article", err)
	}
	s.invalidateCounts(ctx)
	s.log.Info().Str("article_id", id).Msg("Article deleted")
	return nil
}

// Dashboard returns the headline counts.
func (s *Service) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	var (
		stats models.DashboardStats
		err   error
	)
	if stats.TotalUsers, err = s.store.CountUsers(ctx); err != nil {
		return models.DashboardStats{}, apperr.Internal("failed to load dashboard", err)
	}
	if stats.TotalArticles, err = s.store.CountArticles(ctx, ""); err != nil {
		return models.DashboardStats{}, apperr.Internal("failed to load dashboard", err)
	}
	if stats.TotalCategories, err = s.store.CountCategories(ctx); err != nil {
		return models.DashboardStats{}, apperr.Internal("failed to load dashboard", err)
	}
	return stats, nil
}

func (s *Service) invalidateCounts(ctx context.Context) {
	if err := s.cache.Clear(ctx, categoryCountPrefix); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear category counts")
	}
}

// postCount reads the article count of a category through the cache.
func (s *Service) postCount(ctx context.Context, name string) (int, error) {
	key := categoryCountPrefix + name
	if v, err := s.cache.Get(ctx, key); err == nil {
		if n, convErr := strconv.Atoi(v); convErr == nil {
			return n, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	n, err := s.store.CountArticles(ctx, name)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, key, strconv.Itoa(n), s.countTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return n, nil
}
