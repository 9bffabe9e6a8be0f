// Package routes defines the API routing configuration.
package routes

import (
	"time"

	"walletledger/internal/config"
	"walletledger/internal/handlers"
	"walletledger/internal/logger"
	"walletledger/internal/metrics"
	"walletledger/internal/middleware"
	"walletledger/internal/services/audit"
	"walletledger/internal/services/user"
	"walletledger/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the routes dispatch to. Metrics and Health
// are optional.
type Dependencies struct {
	Config  *config.Config
	Users   user.Service
	Wallets wallet.Service
	Audit   *audit.Service
	Metrics *metrics.Collector
	Health  map[string]handlers.Check
	Log     *logrus.Logger
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	log := func(name string) *logrus.Entry { return logger.Component(deps.Log, name) }

	app.Use(recover.New())
	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	app.Get("/health", handlers.NewHealthHandler(deps.Health).HealthCheck)

	authHandler := handlers.NewAuthHandler(deps.Users, cfg.JWTSecret, cfg.TokenTTL, log("auth_handler"))
	userHandler := handlers.NewUserHandler(deps.Users, log("user_handler"))
	walletHandler := handlers.NewWalletHandler(deps.Wallets, log("wallet_handler"))
	transactionHandler := handlers.NewTransactionHandler(deps.Wallets, log("transaction_handler"))
	auditHandler := handlers.NewAuditHandler(deps.Audit, deps.Wallets, log("audit_handler"))

	api := app.Group("/api")

	// Public endpoints. The per-IP limiter sits in front of the per-email one
	// in the user service.
	api.Post("/register", ipLimiter(cfg.RateLimit.IPLimit, cfg.RateLimit.IPWindow), authHandler.RegisterUser)
	api.Post("/login", ipLimiter(cfg.RateLimit.IPLimit, cfg.RateLimit.IPWindow), authHandler.LoginUser)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, deps.Users, log("auth"))
	protected := api.Group("", authMiddleware.Handler)

	walletRoutes := protected.Group("/wallet")
	walletRoutes.Get("/", walletHandler.GetWallet)
	walletRoutes.Post("/deposit", walletHandler.Deposit)
	walletRoutes.Post("/withdraw", walletHandler.Withdraw)
	walletRoutes.Post("/transfer", walletHandler.Transfer)

	protected.Get("/transactions", transactionHandler.GetTransactions)
	protected.Get("/transactions/:id", transactionHandler.GetTransaction)

	auditRoutes := protected.Group("/audit")
	auditRoutes.Get("/large", auditHandler.LargeTransactions)
	auditRoutes.Get("/activity", auditHandler.UnusualActivity)

	protected.Get("/me", userHandler.GetProfile)
	protected.Patch("/me", userHandler.UpdateProfile)
	protected.Delete("/me", userHandler.DeleteAccount)
}

func ipLimiter(max int, expiration time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
				"code":  "RATE_LIMITED",
			})
		},
	})
}
