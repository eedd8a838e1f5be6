package services

import (
	"errors"
	"log"
	"time"

	"event-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ParticipantService exposes the participant-facing endpoints: public event
// browsing, joining, claiming and the profile view.
type ParticipantService struct {
	DB      *gorm.DB
	Claims  *ClaimService
	WorldID WorldIDVerifier
}

func NewParticipantService(db *gorm.DB, claims *ClaimService, worldID WorldIDVerifier) *ParticipantService {
	return &ParticipantService{DB: db, Claims: claims, WorldID: worldID}
}

// eventSummary is the public projection of an event.
type eventSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsPublished bool       `json:"is_published"`
	CreatedAt   time.Time  `json:"created_at"`
	RewardCount int64      `json:"reward_count"`
}

func (s *ParticipantService) summarize(event *models.Event) eventSummary {
	var rewardCount int64
	if err := s.DB.Model(&models.Reward{}).Where("event_id = ?", event.ID).Count(&rewardCount).Error; err != nil {
		log.Printf("DB error counting rewards for event %s: %v", event.ID, err)
	}
	return eventSummary{
		ID:          event.ID,
		Name:        event.Name,
		Slug:        event.Slug,
		Description: event.Description,
		StartDate:   event.StartDate,
		EndDate:     event.EndDate,
		IsActive:    event.IsActive,
		IsPublished: event.IsPublished,
		CreatedAt:   event.CreatedAt,
		RewardCount: rewardCount,
	}
}

// BrowseEvents lists all published and active events. Public, no auth.
func (s *ParticipantService) BrowseEvents(c *fiber.Ctx) error {
	var events []models.Event
	if err := s.DB.Where("is_active = ? AND is_published = ?", true, true).
		Order("created_at DESC").Find(&events).Error; err != nil {
		log.Printf("DB error browsing events: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch events"})
	}

	result := make([]eventSummary, len(events))
	for i := range events {
		result[i] = s.summarize(&events[i])
	}
	return c.JSON(result)
}

// GetPublicEvent returns one published event's details. Public, no auth.
func (s *ParticipantService) GetPublicEvent(c *fiber.Ctx) error {
	var event models.Event
	err := s.DB.Where("id = ? AND is_active = ? AND is_published = ?", c.Params("id"), true, true).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found or not published"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(s.summarize(&event))
}

// JoinEvent handles POST /api/participants/events/:id/join. Google auth only,
// no WorldID needed to join.
func (s *ParticipantService) JoinEvent(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)
	eventID := c.Params("id")

	joined, err := s.Claims.JoinEvent(eventID, participant)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB error joining event %s: %v", eventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to join event"})
	}

	message := "Successfully joined event"
	if !joined {
		message = "Already joined this event"
	}
	return c.JSON(fiber.Map{
		"message":        message,
		"event_id":       eventID,
		"participant_id": participant.ID,
	})
}

// ClaimRewards handles POST /api/participants/events/:id/claim. Requires
// Google auth plus a WorldID proof and a wallet address in the body. The
// response always carries the full per-reward claim sequence so the caller
// can tell "some rewards failed" apart from "request rejected outright".
func (s *ParticipantService) ClaimRewards(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)
	eventID := c.Params("id")

	var req struct {
		WalletAddress string       `json:"wallet_address"`
		WorldIDProof  WorldIDProof `json:"world_id_proof"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.WorldID.VerifyProof(c.Context(), req.WorldIDProof); err != nil {
		log.Printf("WorldID verification failed for claim on event %s: %v", eventID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	worldIDHash := HashNullifier(req.WorldIDProof.NullifierHash)
	if err := s.Claims.LinkWorldID(participant, worldIDHash); err != nil {
		if errors.Is(err, ErrWorldIDMismatch) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB error linking WorldID for participant %s: %v", participant.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	claims, err := s.Claims.ProcessClaims(c.Context(), eventID, participant, req.WalletAddress)
	if err != nil {
		switch {
		case errors.Is(err, ErrEventNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrInvalidWallet),
			errors.Is(err, ErrWalletMismatch),
			errors.Is(err, ErrNotEnrolled),
			errors.Is(err, ErrNoRewardsConfigured),
			errors.Is(err, ErrAlreadyClaimed):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("Error processing claims for event %s: %v", eventID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process claims"})
		}
	}

	return c.JSON(claims)
}

// GetProfile handles GET /api/participants/profile/me.
func (s *ParticipantService) GetProfile(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	var enrollments []models.EventParticipant
	if err := s.DB.Where("participant_id = ?", participant.ID).Find(&enrollments).Error; err != nil {
		log.Printf("DB error loading enrollments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	joined := make([]eventSummary, 0, len(enrollments))
	for _, enrollment := range enrollments {
		var event models.Event
		if err := s.DB.First(&event, "id = ?", enrollment.EventID).Error; err != nil {
			continue
		}
		joined = append(joined, s.summarize(&event))
	}

	var createdEvents []models.Event
	if err := s.DB.Where("participant_id = ?", participant.ID).Find(&createdEvents).Error; err != nil {
		log.Printf("DB error loading created events: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	created := make([]eventSummary, len(createdEvents))
	for i := range createdEvents {
		created[i] = s.summarize(&createdEvents[i])
	}

	return c.JSON(fiber.Map{
		"id":             participant.ID,
		"email":          participant.Email,
		"google_id":      participant.GoogleID,
		"wallet_address": participant.WalletAddress,
		"created_at":     participant.CreatedAt,
		"joined_events":  joined,
		"created_events": created,
	})
}
