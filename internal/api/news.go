package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bilgisen/firenews/internal/middleware"
	"github.com/bilgisen/firenews/internal/news"
)

// GetNews handles GET /news?category=&q=
func (h *Handlers) GetNews(c *fiber.Ctx) error {
	articles, err := h.News.Feed(c.UserContext(), c.Query("category"), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(items(articles))
}

// GetCategoryNames handles GET /news/categories
func (h *Handlers) GetCategoryNames(c *fiber.Ctx) error {
	names, err := h.News.CategoryNames(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(items(names))
}

// GetNewsByID handles GET /news/:id
func (h *Handlers) GetNewsByID(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	article, err := h.News.Article(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"article": article,
		"liked":   sess.HasLiked(article.ID),
	})
}

// LikeNews handles POST /news/:id/like
func (h *Handlers) LikeNews(c *fiber.Ctx) error {
	likes, err := h.News.Like(c.UserContext(), middleware.SessionFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"likes": likes, "liked": true})
}

// AdminListNews handles GET /admin/news?q=
func (h *Handlers) AdminListNews(c *fiber.Ctx) error {
	articles, err := h.News.AdminArticles(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(items(articles))
}

// CreateNews handles POST /admin/news
func (h *Handlers) CreateNews(c *fiber.Ctx) error {
	article, err := h.News.CreateArticle(c.UserContext(), *middleware.Body[news.ArticleInput](c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(article)
}

// UpdateNews handles PUT /admin/news/:id
func (h *Handlers) UpdateNews(c *fiber.Ctx) error {
	article, err := h.News.UpdateArticle(c.UserContext(), c.Params("id"), *middleware.Body[news.ArticleInput](c))
	if err != nil {
		return err
	}
	return c.JSON(article)
}

// DeleteNews handles DELETE /admin/news/:id
func (h *Handlers) DeleteNews(c *fiber.Ctx) error {
	if err := h.News.DeleteArticle(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Dashboard handles GET /admin/dashboard
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	stats, err := h.News.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// AdminListCategories handles GET /admin/categories
func (h *Handlers) AdminListCategories(c *fiber.Ctx) error {
	categories, err := h.News.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(items(categories))
}

// CreateCategory handles POST /admin/categories
func (h *Handlers) CreateCategory(c *fiber.Ctx) error {
	category, err := h.News.CreateCategory(c.UserContext(), *middleware.Body[news.CategoryInput](c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory handles PUT /admin/categories/:id
func (h *Handlers) UpdateCategory(c *fiber.Ctx) error {
	category, err := h.News.UpdateCategory(c.UserContext(), c.Params("id"), *middleware.Body[news.CategoryInput](c))
	if err != nil {
		return err
	}
	return c.JSON(category)
}

// DeleteCategory handles DELETE /admin/categories/:id
func (h *Handlers) DeleteCategory(c *fiber.Ctx) error {
	if err := h.News.DeleteCategory(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
