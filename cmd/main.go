package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/cgchiraggupta/backend-temple-project--sub000/config"
	"github.com/cgchiraggupta/backend-temple-project--sub000/database"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/auditlog"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/cache"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/donation"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/notification"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/paypal"
	"github.com/cgchiraggupta/backend-temple-project--sub000/routes"
)

func main() {
	cfg := config.Load()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	db := database.Connect(cfg)

	// Auto-migrate models
	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(
		&donation.PendingDonation{},
		&donation.Donation{},
		&auditlog.AuditLog{},
	); err != nil {
		log.Fatalf("❌ DB AutoMigrate failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Token/product-id cache: Redis when configured, in-process otherwise.
	var store cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("❌ Redis init failed: %v", err)
		}
		log.Println("✅ Redis cache connected")
		store = redisCache
	} else {
		log.Println("ℹ️ REDIS_ADDR not set, using in-memory cache")
		store = cache.NewMemoryCache()
	}

	provider := paypal.NewClient(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalWebhookID, store)
	if !provider.Configured() {
		log.Println("⚠️ PayPal credentials missing, payment endpoints will return 503")
	}

	// Donation event fan-out: Kafka when configured, no-op otherwise.
	var events notification.Publisher = notification.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		events = notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		emailSender := notification.NewEmailSender(cfg)
		notification.StartKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, emailSender)
		log.Println("✅ Kafka donation event pipeline started")
	} else {
		log.Println("ℹ️ KAFKA_BROKERS not set, donation events disabled")
	}

	auditRepo := auditlog.NewRepository(db)
	auditSvc := auditlog.NewService(auditRepo)
	auditHandler := auditlog.NewHandler(auditSvc)

	donationRepo := donation.NewRepository(db)
	donationSvc := donation.NewService(donationRepo, provider, store, cfg, auditSvc, events)
	donationHandler := donation.NewHandler(donationSvc)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	routes.SetupRoutes(router, cfg, donationHandler, auditHandler)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
