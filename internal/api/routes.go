package api

import (
	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/bilgisen/firenews/internal/accounts"
	"github.com/bilgisen/firenews/internal/feed"
	"github.com/bilgisen/firenews/internal/middleware"
	"github.com/bilgisen/firenews/internal/news"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers, enforcer *casbin.Enforcer) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.NewAuth(middleware.AuthConfig{
		Verifier: h.Auth,
		Sessions: h.Sessions,
	}))

	// API group with versioning
	api := app.Group("/api/v1")
	signedIn := middleware.RequireSession()

	api.Get("/health", h.HealthCheck)

	// Identity
	authGroup := api.Group("/auth")
	{
		authGroup.Post("/register", middleware.ValidateBody[registerRequest](), h.Register)
		authGroup.Post("/login", middleware.ValidateBody[loginRequest](), h.Login)
		authGroup.Post("/logout", signedIn, h.Logout)
		authGroup.Post("/session", signedIn, h.RestoreSession)
		authGroup.Post("/password/reset", middleware.ValidateBody[emailRequest](), h.RequestPasswordReset)
		authGroup.Post("/password/reset/confirm", middleware.ValidateBody[resetConfirmRequest](), h.ConfirmPasswordReset)
		authGroup.Post("/password/change", signedIn, middleware.ValidateBody[changePasswordRequest](), h.ChangePassword)
		authGroup.Post("/verify/send", signedIn, h.SendVerification)
		authGroup.Post("/verify/confirm", middleware.ValidateBody[tokenRequest](), h.ConfirmVerification)
		authGroup.Get("/oauth/:provider", h.OAuthStart)
		authGroup.Get("/oauth/:provider/callback", h.OAuthCallback)
	}

	// Public news
	newsGroup := api.Group("/news")
	{
		newsGroup.Get("", h.GetNews)
		newsGroup.Get("/categories", h.GetCategoryNames)
		newsGroup.Get("/:id", h.GetNewsByID)
		newsGroup.Post("/:id/like", signedIn, h.LikeNews)
		newsGroup.Get("/:id/comments", h.GetComments)
		newsGroup.Get("/:id/comments/stream", h.StreamComments)
		newsGroup.Post("/:id/comments", signedIn, middleware.ValidateBody[feed.PostInput](), h.PostComment)
	}
	api.Post("/comments/:id/report", signedIn, h.ReportComment)
	api.Post("/users/:id/block", signedIn, middleware.ValidateBody[blockRequest](), h.BlockUser)

	// Profile
	me := api.Group("/me", signedIn)
	{
		me.Get("", h.Me)
		me.Patch("", middleware.ValidateBody[accounts.ProfileInput](), h.UpdateMe)
		me.Post("/avatar", h.UploadAvatar)
	}

	// Admin console
	admin := api.Group("/admin", middleware.Authorize(enforcer))
	{
		admin.Get("/dashboard", h.Dashboard)

		admin.Get("/news", h.AdminListNews)
		admin.Post("/news", middleware.ValidateBody[news.ArticleInput](), h.CreateNews)
		admin.Put("/news/:id", middleware.ValidateBody[news.ArticleInput](), h.UpdateNews)
		admin.Delete("/news/:id", h.DeleteNews)
		admin.Post("/uploads", h.UploadImage)

		admin.Get("/categories", h.AdminListCategories)
		admin.Post("/categories", middleware.ValidateBody[news.CategoryInput](), h.CreateCategory)
		admin.Put("/categories/:id", middleware.ValidateBody[news.CategoryInput](), h.UpdateCategory)
		admin.Delete("/categories/:id", h.DeleteCategory)

		admin.Get("/users", h.ListUsers)
		admin.Post("/users", middleware.ValidateBody[accounts.CreateInput](), h.CreateUser)
		admin.Put("/users/:id", middleware.ValidateBody[accounts.UpdateInput](), h.UpdateUser)
		admin.Delete("/users/:id", h.DeleteUser)
		admin.Post("/users/:id/verify", h.VerifyUser)

		admin.Get("/notifications", h.ListNotifications)
		admin.Get("/notifications/stream", h.StreamNotifications)
		admin.Post("/notifications/:id/read", h.MarkNotificationRead)
		admin.Post("/notifications/:id/delete-comment", h.DeleteReportedComment)
		admin.Post("/notifications/:id/ban-user", h.BanReportedUser)
	}

	// 404 Handler
	app.Use(h.NotFound)
}
