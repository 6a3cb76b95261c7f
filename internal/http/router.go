package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/config"
	"github.com/walletflow/backend/internal/http/dto"
	"github.com/walletflow/backend/internal/http/handlers"
	"github.com/walletflow/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	authHandler *handlers.AuthHandler,
	walletHandler *handlers.WalletHandler,
	txHandler *handlers.TransactionHandler,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(dto.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := app.Group("/api")

	// Public
	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)
	api.Get("/transaction/:hash", txHandler.GetByHash)

	// Bearer-token protected
	protected := api.Group("", middleware.AuthRequired(cfg, log))
	protected.Get("/wallet", walletHandler.Get)
	protected.Get("/wallet/status", walletHandler.Status)
	protected.Post("/transaction/send", txHandler.Send)
}
