package handlers

import (
	"event-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupEventRoutes wires the creator-facing event CRUD. Everything here
// requires participant auth.
func SetupEventRoutes(app *fiber.App, eventService *services.EventService, auth fiber.Handler) {
	events := app.Group("/api/events", auth)

	events.Post("", eventService.CreateEvent)
	events.Get("", eventService.GetMyEvents)
	events.Get("/:id", eventService.GetEvent)
	events.Put("/:id", eventService.UpdateEvent)
	events.Delete("/:id", eventService.DeleteEvent)

	events.Post("/:id/publish", eventService.PublishEvent)
	events.Post("/:id/unpublish", eventService.UnpublishEvent)

	events.Get("/:id/participants", eventService.GetEventParticipants)
	events.Get("/:id/claims", eventService.GetEventClaims)
}
