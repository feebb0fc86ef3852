package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cgchiraggupta/backend-temple-project--sub000/config"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/auditlog"
	"github.com/cgchiraggupta/backend-temple-project--sub000/internal/donation"
	"github.com/cgchiraggupta/backend-temple-project--sub000/middleware"
)

// SetupRoutes wires the HTTP surface. The frontend historically called a
// handful of flat /api/donations/* paths, so those stay registered as
// aliases of the /api/v1 group.
func SetupRoutes(router *gin.Engine, cfg *config.Config, donationHandler *donation.Handler, auditHandler *auditlog.Handler) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:4173", "http://127.0.0.1:4173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Content-Length", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.AuditMiddleware())
	router.Use(middleware.RateLimiter())

	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		paypalConfigured := cfg.PayPalClientID != "" && cfg.PayPalSecret != ""
		if !paypalConfigured {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":            status,
			"paypalConfigured":  paypalConfigured,
			"webhookConfigured": cfg.PayPalWebhookID != "",
			"time":              time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := router.Group("/api/v1")

	donations := api.Group("/donations")
	{
		donations.POST("/initiate", donationHandler.InitiateDonation)
		donations.POST("/capture", donationHandler.CaptureDonation)
		donations.GET("/status/:pendingId", donationHandler.GetDonationStatus)
		donations.GET("/recent", donationHandler.RecentDonations)
		donations.GET("/:id/receipt", donationHandler.DownloadReceipt)
		donations.POST("/webhook", donationHandler.HandleWebhook)

		donations.POST("/subscriptions", donationHandler.CreateSubscription)
		donations.POST("/subscriptions/activate", donationHandler.ActivateSubscription)
		donations.GET("/subscriptions/:id", donationHandler.GetSubscriptionStatus)
		donations.POST("/subscriptions/cancel", donationHandler.CancelSubscription)
	}

	auditlogs := api.Group("/auditlogs")
	{
		auditlogs.GET("", auditHandler.GetAuditLogs)
		auditlogs.GET("/:id", auditHandler.GetAuditLogByID)
	}

	// Legacy aliases kept for older frontend builds.
	legacy := router.Group("/api/donations")
	{
		legacy.POST("/create-paypal-order", donationHandler.InitiateDonation)
		legacy.POST("/capture-paypal-order", donationHandler.CaptureDonation)
		legacy.GET("/status/:pendingId", donationHandler.GetDonationStatus)
		legacy.POST("/paypal-webhook", donationHandler.HandleWebhook)
		legacy.POST("/create-subscription", donationHandler.CreateSubscription)
		legacy.POST("/activate-subscription", donationHandler.ActivateSubscription)
		legacy.GET("/subscription/:id", donationHandler.GetSubscriptionStatus)
		legacy.POST("/cancel-subscription", donationHandler.CancelSubscription)
	}
}
