package handlers

import (
	"kobo/internal/repositories"
	"kobo/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// Health reports process and dependency liveness.
func Health(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	if repositories.CacheService != nil {
		if err := repositories.CacheService.HealthCheck(c.Context()); err != nil {
			status["cache"] = "unavailable"
		} else {
			status["cache"] = "ok"
		}
	}

	if repositories.DB != nil {
		sqlDB, err := repositories.DB.DB()
		if err == nil && sqlDB.Ping() == nil {
			status["database"] = "ok"
		} else {
			status["database"] = "unavailable"
			return utils.Respond(c, fiber.StatusServiceUnavailable, status)
		}
	}

	return utils.Success(c, status)
}
