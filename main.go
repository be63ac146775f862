package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marketbay/marketplace-backend/cache"
	"github.com/marketbay/marketplace-backend/controllers"
	"github.com/marketbay/marketplace-backend/database"
	"github.com/marketbay/marketplace-backend/kafka"
	"github.com/marketbay/marketplace-backend/logger"
	"github.com/marketbay/marketplace-backend/middleware"
	"github.com/marketbay/marketplace-backend/repository"
	"github.com/marketbay/marketplace-backend/routes"
	"github.com/marketbay/marketplace-backend/services"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.Initialize(cfg.Env)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	mongoClient, db, err := database.Connect(cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	redisClient := database.NewRedisClient(cfg.RedisURL)

	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		log.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	productRepo := repository.NewMongoProductRepository(db)
	cartRepo := repository.NewMongoCartRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)

	productCache := cache.NewProductCache(redisClient)

	productService := services.NewProductService(productRepo, log)
	cartService := services.NewCartService(cartRepo, productRepo, log)

	var publisher services.OrderEventPublisher
	if producer != nil {
		publisher = producer
	}
	checkoutService := services.NewCheckoutService(productRepo, cartRepo, orderRepo, publisher, log)

	productController := controllers.NewProductController(productService, productCache)
	cartController := controllers.NewCartController(cartService)
	orderController := controllers.NewOrderController(checkoutService)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(300, 50))

	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	routes.RegisterRoutes(r, middleware.Auth(cfg.JWTSecret), productController, cartController, orderController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("Marketplace backend starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close Redis", zap.Error(err))
	}
	if err := database.Close(mongoClient); err != nil {
		log.Error("Failed to disconnect MongoDB", zap.Error(err))
	}

	log.Info("Stopped gracefully")
}
