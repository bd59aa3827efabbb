// handlers/health.go
package handlers

import (
	"log"

	"channel-unlock-bot/middleware"
	"channel-unlock-bot/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes mounts the liveness probe and the token-guarded stats view.
func SetupRoutes(app *fiber.App, db *gorm.DB, stats *services.StatsService, adminToken string) {
	app.Get("/health", healthHandler(db))

	app.Get("/stats", middleware.AdminTokenMiddleware(adminToken), statsHandler(stats))
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			log.Printf("[Health] ❌ database unreachable: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  "database unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func statsHandler(stats *services.StatsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snapshot, err := stats.Snapshot(c.UserContext())
		if err != nil {
			log.Printf("[Stats] ❌ snapshot failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to collect stats",
			})
		}
		return c.JSON(snapshot)
	}
}
