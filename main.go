package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bounty-escrow-system/config"
	"bounty-escrow-system/handlers"
	"bounty-escrow-system/middleware"
	"bounty-escrow-system/services"
	"bounty-escrow-system/utils"
	"bounty-escrow-system/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		// SQLite allows one writer; keep the ledger on a single connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ledger, err := services.NewLedger(db, services.WithMetrics(services.NewMetrics(reg)))
	if err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	if err := ledger.ScheduleEscrowAudit(sched, cfg.EscrowAuditInterval); err != nil {
		log.Fatal("failed to schedule escrow audit:", err)
	}

	if cfg.ArchiveEnabled() {
		client, err := utils.NewR2Client(ctx, cfg.CloudflareAccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archiver := workers.NewEventArchiver(ledger, client, cfg.ArchiveBucket)
		if err := archiver.Schedule(sched, cfg.ArchiveInterval); err != nil {
			log.Fatal("failed to schedule event archive:", err)
		}
		log.Printf("✅ Event archive to bucket %s every %s", cfg.ArchiveBucket, cfg.ArchiveInterval)
	} else {
		log.Println("⚠️  Event archive disabled (ARCHIVE_BUCKET or R2 credentials not set)")
	}

	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
	}()

	if cfg.EventWebhookURL != "" {
		webhook := workers.NewEventWebhookWorker(ledger, cfg.EventWebhookURL, cfg.ServiceToken, cfg.EventWebhookInterval, utils.HTTPClient)
		webhook.Start(ctx)
	} else {
		log.Println("⚠️  EVENT_WEBHOOK_URL not set, event webhook disabled")
	}

	app := fiber.New()

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	limiter := middleware.NewCallerLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	handlers.SetupBountyRoutes(app, ledger, limiter)
	handlers.SetupEventRoutes(app, ledger, reg)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s (db=%s)", cfg.Port, cfg.DBDriver)
	log.Printf("✅ Escrow audit every %s", cfg.EscrowAuditInterval)
	log.Println("✅ GatewayAuthMiddleware enforced globally, all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
