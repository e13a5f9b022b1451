package routes

import (
	"time"

	"shop_back_end/internal/handlers"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

type RateLimits struct {
	Limiter middleware.Limiter
	Window  time.Duration
	Auth    int
	Orders  int
}

// Deps regroupe ce dont la table de routes a besoin
type Deps struct {
	Tokens      middleware.TokenParser
	Revocations middleware.RevocationChecker
	RateLimits  RateLimits

	Auth      *handlers.AuthHandler
	Products  *handlers.ProductHandler
	Reviews   *handlers.ReviewHandler
	Orders    *handlers.OrderHandler
	Users     *handlers.UserHandler
	Analytics *handlers.AnalyticsHandler
	Uploads   *handlers.UploadHandler
	Live      gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	api := r.Group("/api")
	api.Use(middleware.Authenticate(d.Tokens, d.Revocations))

	requireAuth := middleware.AuthRequired()
	admin := []gin.HandlerFunc{middleware.RequireRole(models.RoleAdmin), middleware.AuditLog()}
	rl := d.RateLimits

	api.GET("/health", handlers.Health)

	// 🔐 Auth
	authGroup := api.Group("/auth")
	{
		limited := middleware.RateLimit(rl.Limiter, "auth", rl.Auth, rl.Window)
		authGroup.POST("/register", limited, d.Auth.Register)
		authGroup.POST("/login", limited, d.Auth.Login)
		authGroup.POST("/logout", requireAuth, d.Auth.Logout)
		authGroup.GET("/me", requireAuth, d.Auth.Me)
		authGroup.GET("/oauth/:provider", d.Auth.BeginOAuth)
		authGroup.GET("/oauth/:provider/callback", d.Auth.OAuthCallback)
	}

	// 🛍️ Catalogue
	products := api.Group("/products")
	{
		products.GET("", d.Products.List)
		products.GET("/search", d.Products.Search)
		products.GET("/:id", d.Products.Get)
		products.GET("/:id/reviews", d.Reviews.List)
		products.POST("/:id/reviews", requireAuth, d.Reviews.Create)
		products.PUT("/:id/reviews", requireAuth, d.Reviews.Update)
		products.DELETE("/:id/reviews", requireAuth, d.Reviews.Delete)

		manage := products.Group("", admin...)
		manage.POST("", d.Products.Create)
		manage.PUT("", d.Products.Update)
		manage.DELETE("", d.Products.Delete)
		manage.PUT("/:id", d.Products.Update)
		manage.DELETE("/:id", d.Products.Delete)
	}

	// 📦 Commandes
	orders := api.Group("/orders")
	{
		orders.POST("", middleware.RateLimit(rl.Limiter, "orders", rl.Orders, rl.Window), d.Orders.Create)
		orders.GET("", requireAuth, d.Orders.ListMine)
		orders.GET("/:id", requireAuth, d.Orders.Get)
		orders.GET("/:id/invoice", requireAuth, d.Orders.Invoice)
		orders.PUT("", middleware.RequireRole(models.RoleAdmin), middleware.AuditLog(), d.Orders.UpdateStatus)
	}

	// 🛠️ Administration
	adm := api.Group("/admin", admin...)
	{
		adm.GET("/orders", d.Orders.AdminList)
		adm.PUT("/orders/:id", d.Orders.UpdateStatus)

		adm.GET("/reviews", d.Reviews.AdminList)
		adm.PUT("/reviews", d.Reviews.Moderate)
		adm.PATCH("/reviews", d.Reviews.BulkModerate)

		adm.GET("/analytics", d.Analytics.Summary)
		if d.Live != nil {
			adm.GET("/live", d.Live)
		}
		registerUsers(adm.Group("/users"), d.Users)
	}

	// /api/users : alias historique de /api/admin/users
	users := api.Group("/users", admin...)
	registerUsers(users, d.Users)
	users.GET("/:id/orders", d.Orders.ListForUser)

	uploads := api.Group("/upload", admin...)
	uploads.POST("", d.Uploads.Upload)
	uploads.DELETE("", d.Uploads.Delete)
	uploads.GET("/url", d.Uploads.SignedURL)
}

func registerUsers(g *gin.RouterGroup, h *handlers.UserHandler) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("", h.Update)
	g.PUT("/:id", h.Update)
	g.DELETE("", h.Delete)
	g.DELETE("/:id", h.Delete)
}
