package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/autoscaler"
	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"github.com/dominik-hvln/hv-hosting-platform/internal/database"
	"github.com/dominik-hvln/hv-hosting-platform/internal/extbilling"
	"github.com/dominik-hvln/hv-hosting-platform/internal/handlers"
	"github.com/dominik-hvln/hv-hosting-platform/internal/middleware"
	"github.com/dominik-hvln/hv-hosting-platform/internal/models"
	"github.com/dominik-hvln/hv-hosting-platform/internal/provisioner"
	"github.com/dominik-hvln/hv-hosting-platform/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed admin user if not exists
	seedAdminUser()

	// External clients
	panelClient := provisioner.NewClient(cfg.PanelURL, cfg.PanelAPIKey,
		time.Duration(cfg.PanelTimeoutSec)*time.Second)

	var billingClient *extbilling.Client
	if cfg.BillingURL != "" {
		billingClient = extbilling.NewClient(cfg.BillingURL, cfg.BillingAPIKey,
			time.Duration(cfg.BillingTimeoutSec)*time.Second)
	} else {
		log.Println("Warning: BILLING_URL not set, upstream billing panel disabled")
	}

	ledger := wallet.NewLedger(database.DB, cfg.Currency)

	// Autoscaling orchestrator. billing stays nil when not configured so the
	// wallet is the only payment path.
	var billing autoscaler.SecondaryBilling
	if billingClient != nil {
		billing = billingClient
	}
	orchestrator := autoscaler.NewOrchestrator(database.DB, ledger, panelClient, panelClient,
		billing, database.NewAccountLock())

	// Start autoscaler sweep service
	autoscalerService := autoscaler.NewService(database.DB, cfg, orchestrator)
	autoscalerService.Start()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "HV Hosting API v1.0",
		ServerHeader: "HVHosting",
		BodyLimit:    10 * 1024 * 1024, // 10MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "hv-hosting-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	twoFAHandler := handlers.NewTwoFAHandler()
	planHandler := handlers.NewPlanHandler()
	purchaseHandler := handlers.NewPurchaseHandler(cfg, ledger, panelClient)
	walletHandler := handlers.NewWalletHandler(ledger)
	promoHandler := handlers.NewPromoHandler()
	accountHandler := handlers.NewAccountHandler(cfg, panelClient, orchestrator)
	scalingHandler := handlers.NewScalingHandler(cfg, ledger, orchestrator)
	settingsHandler := handlers.NewSettingsHandler()
	auditHandler := handlers.NewAuditHandler()

	// API routes
	api := app.Group("/api")

	// Apply rate limiting to API routes (100 requests per minute by default)
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Get("/plans", planHandler.List)
	api.Get("/plans/:id", planHandler.Get)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)
	protected.Post("/auth/refresh", authHandler.RefreshToken)
	protected.Put("/auth/password", authHandler.ChangePassword)

	// 2FA routes
	protected.Get("/auth/2fa/status", twoFAHandler.Status)
	protected.Post("/auth/2fa/setup", twoFAHandler.Setup)
	protected.Post("/auth/2fa/verify", twoFAHandler.Verify)
	protected.Post("/auth/2fa/disable", twoFAHandler.Disable)

	// Plan management (admin only)
	plans := protected.Group("/admin/plans", middleware.AdminOnly())
	plans.Post("/", planHandler.Create)
	plans.Put("/:id", planHandler.Update)
	plans.Delete("/:id", planHandler.Delete)

	// Purchase routes
	purchases := protected.Group("/purchases")
	purchases.Get("/", purchaseHandler.List)
	purchases.Get("/:id", purchaseHandler.Get)
	purchases.Post("/", purchaseHandler.Checkout)
	purchases.Post("/:id/cancel", purchaseHandler.Cancel)

	// Wallet routes
	walletRoutes := protected.Group("/wallet")
	walletRoutes.Get("/", walletHandler.Get)
	walletRoutes.Post("/topup", walletHandler.TopUp)
	walletRoutes.Get("/history", walletHandler.History)
	protected.Post("/admin/users/:id/wallet", middleware.AdminOnly(), walletHandler.Adjust)

	// Promo code routes
	protected.Get("/promo/validate", promoHandler.Validate)
	promos := protected.Group("/admin/promo-codes", middleware.AdminOnly())
	promos.Get("/", promoHandler.List)
	promos.Post("/", promoHandler.Create)
	promos.Put("/:id", promoHandler.Update)
	promos.Delete("/:id", promoHandler.Delete)

	// Hosting account routes
	accounts := protected.Group("/accounts")
	accounts.Get("/", accountHandler.List)
	accounts.Get("/:id", accountHandler.Get)
	accounts.Get("/:id/usage", accountHandler.Usage)
	accounts.Put("/:id/autoscaling", accountHandler.ToggleAutoscaling)
	accounts.Post("/:id/scale", middleware.AdminOnly(), accountHandler.Scale)
	accounts.Post("/:id/suspend", middleware.AdminOnly(), accountHandler.Suspend)
	accounts.Post("/:id/unsuspend", middleware.AdminOnly(), accountHandler.Unsuspend)

	// Scaling routes
	protected.Get("/scaling/logs", scalingHandler.ListLogs)
	protected.Post("/admin/scaling/sweep", middleware.AdminOnly(), scalingHandler.RunSweep)
	protected.Post("/admin/scaling/logs/:id/retry-payment", middleware.AdminOnly(), scalingHandler.RetryPayment)

	// Settings routes (Admin only)
	settings := protected.Group("/admin/settings", middleware.AdminOnly())
	settings.Get("/", settingsHandler.List)
	settings.Put("/", settingsHandler.Set)
	settings.Delete("/:key", settingsHandler.Delete)

	// Audit log routes (Admin only)
	protected.Get("/admin/audit", middleware.AdminOnly(), auditHandler.List)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		autoscalerService.Stop()
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting HV Hosting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func seedAdminUser() {
	var count int64
	database.DB.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count)

	if count == 0 {
		log.Println("Creating default admin user...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)

		admin := models.User{
			Email:        "admin@hvhosting.local",
			Password:     string(hashedPassword),
			FullName:     "System Administrator",
			Role:         models.UserRoleAdmin,
			IsActive:     true,
			ReferralCode: "ADMIN00000",
		}

		if err := database.DB.Create(&admin).Error; err != nil {
			log.Printf("Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created successfully (email: admin@hvhosting.local, password: admin123)")
		}
	}
}
