package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/provia/rewards-service/internal/config"
	"github.com/provia/rewards-service/internal/database"
	"github.com/provia/rewards-service/internal/handler"
	"github.com/provia/rewards-service/internal/middleware"
	"github.com/provia/rewards-service/internal/queue"
	"github.com/provia/rewards-service/internal/repository"
	"github.com/provia/rewards-service/internal/router"
	"github.com/provia/rewards-service/internal/service"
)

func main() {
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	schemaCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis is optional: without it the service runs uncached and
	// unthrottled but fully functional.
	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	rateCfg := config.LoadRateLimitConfig()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	ledger := repository.NewLedgerRepo(db)
	rewards := repository.NewRewardRepo(db)
	redemptions := repository.NewRedemptionRepo(db, ledger, rewards)

	// A nil *CatalogInvalidator must stay a nil interface value, or the
	// services would call through it.
	var invalidator service.Invalidator
	if ci := middleware.NewCatalogInvalidator(cacheCfg, rdb); ci != nil {
		invalidator = ci
	}

	notifier := service.AMQPNotifier{}
	points := service.NewPointsService(ledger, notifier, cfg.Categories)
	redeem := service.NewRedemptionService(rewards, ledger, redemptions, notifier, invalidator)

	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Cfg:      cfg,
		RateCfg:  rateCfg,
		CacheCfg: cacheCfg,
		Redis:    rdb,
		Health:   handler.NewHealthHandler(db),
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Catalog:  handler.NewCatalogHandler(rewards),
		Balance:  handler.NewBalanceHandler(points),
		Redeem:   handler.NewRedemptionHandler(redeem),
		Award:    handler.NewAwardHandler(points),
		Admin:    handler.NewAdminRewardHandler(rewards, redemptions, invalidator),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
