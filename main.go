package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"channel-unlock-bot/config"
	"channel-unlock-bot/handlers"
	"channel-unlock-bot/models"
	"channel-unlock-bot/services"
	"channel-unlock-bot/telegram"
	"channel-unlock-bot/utils"
	"channel-unlock-bot/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Participant{},
		&models.RewardArtifact{},
		&models.CommunityCounter{},
		&models.ChannelPost{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, err := telegram.NewTransport(cfg.Telegram)
	if err != nil {
		log.Fatal(err)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
	}()

	ledger := services.NewLedgerService(db)
	community := services.NewCommunityService(db)
	catalog := services.NewCatalogService(db)

	dispatcher := services.NewMilestoneDispatcher(db, ledger, community, catalog, transport, cfg.Telegram.ChannelID, cfg.Rewards.Interval)
	dispatcher.BotLink = func() string { return transport.InviteLink("") }

	referral := services.NewReferralEngine(ledger, community, dispatcher, transport, cfg.Telegram.ChannelID)

	pipeline := services.NewIngestionPipeline(catalog, cfg.Rewards.Interval)
	sessions := services.NewSessionRegistry(pipeline, services.SchedulerDeferrer{Scheduler: sched}, cfg.Rewards.SessionTimeout)

	// Leave the interface nil rather than holding a nil *R2Uploader
	var uploader services.ObjectUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		uploader = r2
	} else {
		log.Println("⚠️  R2 not configured, catalog backups disabled")
	}
	backup := services.NewBackupService(catalog, uploader)

	stats := services.NewStatsService(ledger, community, catalog)
	broadcastWorker := workers.NewBroadcastWorker(services.NewBroadcastService(ledger, transport, cfg.Rewards.BroadcastDelay), 8)
	fallback := services.NewFallbackScheduler(referral, dispatcher, community, backup, transport, cfg.Telegram.AdminIDs, cfg.Rewards.FallbackAfter)

	bot := telegram.NewBot(transport, cfg.Telegram, telegram.Services{
		Ledger:     ledger,
		Community:  community,
		Catalog:    catalog,
		Dispatcher: dispatcher,
		Referral:   referral,
		Sessions:   sessions,
		Scheduler:  fallback,
		Backup:     backup,
		Stats:      stats,
		Broadcasts: broadcastWorker,
	})

	broadcastWorker.Start(ctx)

	if err := fallback.Start(ctx, sched, cfg.Schedule); err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handlers.SetupRoutes(app, db, stats, cfg.Server.AdminAPIToken)

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ HTTP server running on :%s", cfg.Server.Port)
	log.Printf("✅ Reward interval %d, fallback after %s", cfg.Rewards.Interval, cfg.Rewards.FallbackAfter)

	// Blocks until ctx is cancelled
	bot.Start(ctx)

	log.Println("Shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
