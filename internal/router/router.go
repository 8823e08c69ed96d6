// Package router wires handlers and middleware onto the Echo instance.
// Route placement doubles as a safety boundary: only the public catalog
// sits behind the response cache, and every /v1 route passes through
// the token bucket.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/provia/rewards-service/internal/config"
	"github.com/provia/rewards-service/internal/handler"
	"github.com/provia/rewards-service/internal/middleware"
	"github.com/provia/rewards-service/internal/model"
)

// Deps carries everything the routes need.
type Deps struct {
	Cfg      config.Config
	RateCfg  config.RateLimitConfig
	CacheCfg config.CacheConfig
	Redis    *redis.Client // nil disables rate limiting and caching
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Catalog  *handler.CatalogHandler
	Balance  *handler.BalanceHandler
	Redeem   *handler.RedemptionHandler
	Award    *handler.AwardHandler
	Admin    *handler.AdminRewardHandler
}

// Register mounts all routes.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Healthz)

	limiter := middleware.NewTokenBucket(d.RateCfg, d.Redis)
	cache := middleware.NewCatalogCache(d.CacheCfg, d.Redis)

	// Unauthenticated auth operations.
	auth := e.Group("/v1/auth", limiter)
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)

	// Public catalog: cached, no identity in the key, so only
	// anonymous-safe data may be served here.
	catalog := e.Group("/v1/rewards", limiter, cache)
	catalog.GET("", d.Catalog.ListRewards)
	catalog.GET("/:id", d.Catalog.GetReward)

	// Member routes: authenticated, never cached.  Auth runs before the
	// limiter so the bucket key carries the user id, not just the ip.
	member := e.Group("/v1", middleware.JWTAuth(d.Cfg.JWTSecret), limiter)
	member.GET("/me", d.Auth.Me)
	member.POST("/auth/logout", d.Auth.Logout)
	member.GET("/points/balance", d.Balance.GetBalance)
	member.GET("/points/balances", d.Balance.GetCategoryBalances)
	member.GET("/points/history", d.Balance.GetHistory)
	member.POST("/rewards/:id/redeem", d.Redeem.Redeem)
	member.GET("/redemptions", d.Redeem.ListMine)

	// Admin routes: catalog management, awarding, fulfilment.
	admin := e.Group("/v1/admin",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		limiter)
	admin.POST("/points/award", d.Award.Award)
	admin.GET("/rewards", d.Admin.ListRewards)
	admin.POST("/rewards", d.Admin.CreateReward)
	admin.PUT("/rewards/:id", d.Admin.UpdateReward)
	admin.POST("/redemptions/:id/ship", d.Admin.ShipRedemption)
	admin.POST("/redemptions/:id/deliver", d.Admin.DeliverRedemption)
	admin.POST("/redemptions/:id/cancel", d.Admin.CancelRedemption)
}
