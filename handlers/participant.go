package handlers

import (
	"time"

	"event-reward-system/middleware"
	"event-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupParticipantRoutes wires public browsing plus the authenticated
// join/claim/profile endpoints. Join and claim carry per-IP rate limits.
func SetupParticipantRoutes(app *fiber.App, participantService *services.ParticipantService, auth fiber.Handler, limiter middleware.RateLimiter) {
	api := app.Group("/api/participants")

	// 🔓 Public, no auth
	api.Get("/public/events", participantService.BrowseEvents)
	api.Get("/public/events/:id", participantService.GetPublicEvent)

	// 🔐 Authenticated
	secured := api.Group("/", auth)
	secured.Get("/profile/me", participantService.GetProfile)
	secured.Post("/events/:id/join",
		middleware.RateLimit(limiter, 5, time.Minute),
		participantService.JoinEvent)
	secured.Post("/events/:id/claim",
		middleware.RateLimit(limiter, 3, time.Minute),
		participantService.ClaimRewards)
}
