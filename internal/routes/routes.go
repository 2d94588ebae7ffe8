package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/core-bank/core_bank/internal/account"
	"github.com/core-bank/core_bank/internal/auth"
	"github.com/core-bank/core_bank/internal/cashier"
	"github.com/core-bank/core_bank/internal/config"
	"github.com/core-bank/core_bank/internal/history"
	"github.com/core-bank/core_bank/internal/identity"
	"github.com/core-bank/core_bank/internal/ledger"
	"github.com/core-bank/core_bank/internal/middleware"
	"github.com/core-bank/core_bank/internal/notification"
	"github.com/core-bank/core_bank/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Outside development the Postgres store and Redis are mandatory.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	accountSvc := account.NewService(store)
	notifier := notification.NewLoggerNotifier(d.Logger)
	transferSvc := transfer.NewService(store, notifier, d.Cfg.TransferRetryLimit)
	historySvc := history.NewService(store)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	authHandler := auth.NewHandler(identitySvc, authSvc, accountSvc)
	accountHandler := account.NewHandler(accountSvc)
	transferHandler := transfer.NewHandler(transferSvc)
	cashierHandler := cashier.NewHandler(transferSvc)
	historyHandler := history.NewHandler(historySvc)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	protected.Post("/auth/logout", authHandler.Logout)
	RegisterMeRoute(protected, accountSvc, identityRepo)
	RegisterAccountRoutes(protected, accountHandler, cashierHandler)
	RegisterTransferRoutes(protected, transferHandler)
	RegisterTransactionRoutes(protected, historyHandler)

	return nil
}
