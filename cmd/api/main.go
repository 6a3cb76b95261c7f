package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/walletflow/backend/internal/chain"
	"github.com/walletflow/backend/internal/config"
	"github.com/walletflow/backend/internal/custody"
	"github.com/walletflow/backend/internal/db"
	apphttp "github.com/walletflow/backend/internal/http"
	"github.com/walletflow/backend/internal/http/handlers"
	"github.com/walletflow/backend/internal/identity"
	"github.com/walletflow/backend/internal/repositories"
	"github.com/walletflow/backend/internal/services"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// External service clients
	identityClient := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey, log)
	custodyClient, err := custody.NewClient(cfg.CustodyBaseURL, cfg.CustodyAPIKey, cfg.CustodySigningKey, log)
	if err != nil {
		log.Fatal("failed to build custody client", zap.Error(err))
	}
	chainClient, err := chain.Dial(ctx, cfg.RPCEndpoint, cfg.ChainID, log)
	if err != nil {
		log.Fatal("failed to connect to chain", zap.Error(err))
	}
	defer chainClient.Close()

	// Repositories and services
	linkRepo := repositories.NewWalletLinkRepo(pool)
	statusCache := services.NewRedisStatusCache(rdb, log)
	walletService := services.NewWalletService(linkRepo, custodyClient, chainClient, statusCache,
		cfg.WalletPollMaxAttempts, cfg.WalletPollInterval, log)
	txService := services.NewTransactionService(linkRepo, custodyClient, chainClient, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(identityClient, walletService, log)
	walletHandler := handlers.NewWalletHandler(walletService, log)
	txHandler := handlers.NewTransactionHandler(txService, log)

	app := fiber.New(fiber.Config{
		AppName: "walletflow-api",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": "upstream_error", "message": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, authHandler, walletHandler, txHandler)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server",
		zap.String("addr", addr),
		zap.String("environment", cfg.Environment),
		zap.Int64("chain_id", cfg.ChainID),
	)
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
