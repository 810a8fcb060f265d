// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/kinder-market/internal/config"
	"github.com/iliyamo/kinder-market/internal/handler"
	"github.com/iliyamo/kinder-market/internal/middleware"
	"github.com/iliyamo/kinder-market/internal/model"
)

const categoriesPath = "/v1/categories"

// Deps carries what the routes need beyond the handlers.  Redis may be nil,
// which disables rate limiting and response caching.
type Deps struct {
	Cfg   config.Config
	Redis *redis.Client
	Log   *zap.Logger
}

// RegisterRoutes registers unauthenticated routes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// profile endpoints under /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, d Deps) {
	limit := middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log)

	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me", middleware.JWTAuth(d.Cfg.JWTSecret), limit)
	me.GET("", a.Me)
	me.DELETE("", a.DeleteMe)
}

// RegisterMarket registers the marketplace endpoints.  All of them need a
// valid access token; creating categories also needs the STAFF role.
func RegisterMarket(e *echo.Echo, h *handler.MarketHandler, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log),
	)

	g.GET("/categories", h.Categories, middleware.NewRedisCache(d.Cfg.Cache, d.Redis, d.Log))
	g.POST("/categories", h.CreateCategory,
		middleware.RequireRole(model.RoleStaff),
		middleware.EvictCache(d.Cfg.Cache, d.Redis, categoriesPath, d.Log))

	g.GET("/listings", h.Search)
	g.POST("/listings", h.CreateListing)
	g.GET("/listings/mine", h.MyListings)
	g.GET("/listings/:id", h.GetListing)
	g.PUT("/listings/:id", h.UpdateListing)
	g.DELETE("/listings/:id", h.DeleteListing)

	g.POST("/listings/:id/favorite", h.ToggleFavorite)
	g.GET("/favorites", h.Favorites)

	g.POST("/listings/:id/intent", h.AddIntent)
	g.DELETE("/listings/:id/intent", h.WithdrawIntent)
	g.GET("/intents/sent", h.SentIntents)
	g.GET("/intents/received", h.ReceivedIntents)
	g.POST("/intents/:id/start", h.StartTransaction)
	g.POST("/intents/:id/complete", h.CompleteTransaction)

	g.GET("/listings/:id/comments", h.Comments)
	g.POST("/listings/:id/comments", h.AddComment)
}

// ServeMedia exposes the image store directory under the configured base
// URL.
func ServeMedia(e *echo.Echo, m config.MediaConfig) {
	if m.BaseURL == "" || m.Root == "" {
		return
	}
	e.Static(m.BaseURL, m.Root)
}
