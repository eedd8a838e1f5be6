package handlers

import (
	"event-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	auth := app.Group("/api/auth")
	auth.Post("/google/verify", authService.VerifyGoogleToken)
}
