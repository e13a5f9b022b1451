package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shop_back_end/internal/auth"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/config"
	"shop_back_end/internal/database"
	"shop_back_end/internal/events"
	"shop_back_end/internal/handlers"
	"shop_back_end/internal/invoice"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/notify"
	"shop_back_end/internal/payment"
	"shop_back_end/internal/repository"
	"shop_back_end/internal/routes"
	"shop_back_end/internal/search"
	"shop_back_end/internal/services"
	"shop_back_end/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Connexion aux bases impossible: %v", err)
	}
	defer clients.Close()

	// 🗄️ Repositories (un keyspace par domaine)
	products := repository.NewProductRepository(clients.Scylla.ProductsSession)
	reviews := repository.NewReviewRepository(clients.Scylla.ProductsSession)
	users := repository.NewUserRepository(clients.Scylla.UsersSession)
	orders := repository.NewOrderRepository(clients.Scylla.OrdersSession)

	tokenStore := cache.NewTokenStore(clients.Redis)
	productCache := cache.NewProductCache(clients.Redis, cfg.Redis.CacheTTL)

	// Les intégrations optionnelles restent des interfaces nil quand elles sont absentes
	var index services.ProductIndex
	if clients.Elastic != nil {
		idx := search.NewProductIndex(clients.Elastic, cfg.Elastic.Index)
		if err := idx.EnsureIndex(ctx); err != nil {
			log.Printf("⚠️ Index Elasticsearch indisponible: %v", err)
		} else {
			index = idx
		}
	}

	var payments services.PaymentGateway
	if gw := payment.NewStripeGateway(cfg.Stripe); gw != nil {
		payments = gw
	}

	var images handlers.Images
	if clients.MinIO != nil {
		images = storage.NewImageStore(clients.MinIO, cfg.MinIO)
	}

	// 🧩 Services
	catalog := services.NewCatalogService(products, reviews, index, productCache)
	reviewService := services.NewReviewService(reviews, products, catalog)
	orderService := services.NewOrderService(services.OrderDeps{
		Orders:   orders,
		Stock:    catalog,
		Payments: payments,
		Notifier: notify.NewMailer(cfg.SMTP, cfg.Shop.CompanyName),
		Events:   events.NewPublisher(clients.Redis),
		Invoices: invoice.NewRenderer(cfg.Shop),
	}, cfg.Shop)
	userService := services.NewUserService(users, orders, tokenStore)
	analytics := services.NewAnalyticsService(products, orders, users)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if providers := config.InitOAuthProviders(cfg); len(providers) > 0 {
		log.Printf("✅ %d provider(s) OAuth: %v", len(providers), providers)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.CORS(cfg.CORSOrigins))

	routes.RegisterRoutes(r, routes.Deps{
		Tokens:      issuer,
		Revocations: tokenStore,
		RateLimits: routes.RateLimits{
			Limiter: cache.NewRateLimiter(clients.Redis),
			Window:  cfg.RateLimit.Window,
			Auth:    cfg.RateLimit.Auth,
			Orders:  cfg.RateLimit.Orders,
		},
		Auth:      handlers.NewAuthHandler(userService, issuer, tokenStore, cfg.JWTTTL),
		Products:  handlers.NewProductHandler(catalog),
		Reviews:   handlers.NewReviewHandler(reviewService),
		Orders:    handlers.NewOrderHandler(orderService),
		Users:     handlers.NewUserHandler(userService),
		Analytics: handlers.NewAnalyticsHandler(analytics),
		Uploads:   handlers.NewUploadHandler(images),
		Live:      events.NewFeed(clients.Redis, cfg.CORSOrigins).Serve,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("🚀 Serveur lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Arrêt forcé: %v", err)
	}
}
