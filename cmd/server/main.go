package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"paydesk/internal/adapters/http/middleware"
	"paydesk/internal/adapters/http/routes"
	"paydesk/internal/adapters/payrollapi"
	"paydesk/internal/adapters/persistence/models"
	"paydesk/internal/adapters/persistence/repositories"
	"paydesk/internal/config"
	"paydesk/internal/core/services"
	"paydesk/internal/pkg/cipher"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	_ "paydesk/docs" // Swagger docs
)

// @title paydesk API
// @version 1.0
// @description Backend for the payroll loan dashboard

// @BasePath /api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Client store
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open client store: %v", err)
	}
	defer closeStore()

	storageCipher, err := cipher.New(cfg.Cipher.Secret)
	if err != nil {
		log.Fatalf("❌ Failed to initialise cipher: %v", err)
	}

	registry := services.NewSessionRegistry(store, storageCipher, cfg.Session.TTL)
	api := payrollapi.NewClient(cfg.PayrollAPI)

	// Background maintenance
	purger, _ := store.(repositories.ExpiredPurger)
	cronService := services.NewCronService(registry, purger, cfg.Session.IdleTimeout)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron service: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "paydesk API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	health, _ := store.(repositories.HealthChecker)
	routes.Setup(app, &routes.Deps{
		Config:   cfg,
		API:      api,
		Cipher:   storageCipher,
		Registry: registry,
		Health:   health,
	})

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// openStore connects the configured client store
func openStore(cfg *config.Config) (repositories.ClientStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageRedis:
		rdb, err := config.ConnectRedis(cfg)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil

	case config.StorageMySQL, config.StoragePostgres:
		db, err := config.ConnectDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := models.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
		log.Println("✅ Database migration completed")
		return repositories.NewStorageRepository(db), func() { _ = config.CloseDatabase() }, nil

	default:
		log.Println("⚠️ Using in-memory client store, state is lost on restart")
		return repositories.NewMemoryStore(), func() {}, nil
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
