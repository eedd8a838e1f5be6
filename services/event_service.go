package services

import (
	"errors"
	"log"
	"time"

	"event-reward-system/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

type rewardInput struct {
	RewardType   models.RewardType `json:"reward_type"`
	TokenAddress string            `json:"token_address"`
	Amount       string            `json:"amount"`
	TokenID      *int64            `json:"token_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
}

func validateRewardInput(r rewardInput) string {
	switch r.RewardType {
	case models.RewardTypeERC20:
		if r.Amount == "" {
			return "Amount is required for ERC20 rewards"
		}
		if _, err := ToWei(r.Amount); err != nil {
			return "Invalid ERC20 amount"
		}
	case models.RewardTypeERC721, models.RewardTypeERC1155:
		if r.TokenID == nil {
			return "Token ID is required for NFT rewards"
		}
	default:
		return "Reward type must be one of ERC20, ERC721, ERC1155"
	}
	if !common.IsHexAddress(r.TokenAddress) {
		return "Invalid token contract address"
	}
	return ""
}

// CreateEvent creates an event together with its reward catalog. Rewards are
// immutable afterwards, so they are only accepted here.
func (s *EventService) CreateEvent(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	var req struct {
		Name        string        `json:"name"`
		Description string        `json:"description"`
		StartDate   *time.Time    `json:"start_date"`
		EndDate     *time.Time    `json:"end_date"`
		Rewards     []rewardInput `json:"rewards"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Event name is required"})
	}
	for _, r := range req.Rewards {
		if msg := validateRewardInput(r); msg != "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
		}
	}

	event := models.Event{
		ID:            uuid.NewString(),
		ParticipantID: participant.ID,
		Name:          req.Name,
		Slug:          slug.Make(req.Name),
		Description:   req.Description,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		IsActive:      true,
		IsPublished:   false,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		for _, r := range req.Rewards {
			reward := models.Reward{
				ID:           uuid.NewString(),
				EventID:      event.ID,
				RewardType:   r.RewardType,
				TokenAddress: common.HexToAddress(r.TokenAddress).Hex(),
				Amount:       r.Amount,
				TokenID:      r.TokenID,
				Name:         r.Name,
				Description:  r.Description,
			}
			if err := tx.Create(&reward).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("DB error creating event: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create event"})
	}

	if err := s.DB.Preload("Rewards").First(&event, "id = ?", event.ID).Error; err != nil {
		log.Printf("DB error reloading event: %v", err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// findOwnedEvent loads an event owned by the given creator.
func (s *EventService) findOwnedEvent(eventID, participantID string) (*models.Event, error) {
	var event models.Event
	err := s.DB.Where("id = ? AND participant_id = ?", eventID, participantID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetMyEvents lists events created by the authenticated participant.
func (s *EventService) GetMyEvents(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	var events []models.Event
	if err := s.DB.Preload("Rewards").Where("participant_id = ?", participant.ID).
		Order("created_at DESC").Find(&events).Error; err != nil {
		log.Printf("DB error fetching events: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch events"})
	}
	return c.JSON(events)
}

// GetEvent returns one of the creator's events with its reward catalog.
func (s *EventService) GetEvent(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	var event models.Event
	err := s.DB.Preload("Rewards").Where("id = ? AND participant_id = ?", c.Params("id"), participant.ID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(event)
}

// UpdateEvent updates event metadata. The reward catalog is not touchable
// here.
func (s *EventService) UpdateEvent(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	event, err := s.findOwnedEvent(c.Params("id"), participant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		IsActive    *bool      `json:"is_active"`
		IsPublished *bool      `json:"is_published"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Name != nil {
		event.Name = *req.Name
		event.Slug = slug.Make(*req.Name)
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.StartDate != nil {
		event.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		event.EndDate = req.EndDate
	}
	if req.IsActive != nil {
		event.IsActive = *req.IsActive
	}
	if req.IsPublished != nil {
		event.IsPublished = *req.IsPublished
	}

	if err := s.DB.Save(event).Error; err != nil {
		log.Printf("DB error updating event: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update event"})
	}
	return c.JSON(event)
}

// DeleteEvent removes an event and everything hanging off it. The cascade is
// explicit application-level logic inside one transaction: claims, rewards
// and enrollments go first, then the event row.
func (s *EventService) DeleteEvent(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	event, err := s.findOwnedEvent(c.Params("id"), participant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Claim{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Reward{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.EventParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(event).Error
	})
	if err != nil {
		log.Printf("DB error deleting event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete event"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *EventService) setPublished(c *fiber.Ctx, published bool) error {
	participant := c.Locals("participant").(*models.Participant)

	event, err := s.findOwnedEvent(c.Params("id"), participant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	event.IsPublished = published
	if err := s.DB.Save(event).Error; err != nil {
		log.Printf("DB error publishing event: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update event"})
	}
	return c.JSON(event)
}

// PublishEvent makes the event visible to participants.
func (s *EventService) PublishEvent(c *fiber.Ctx) error {
	return s.setPublished(c, true)
}

// UnpublishEvent hides the event from participants again.
func (s *EventService) UnpublishEvent(c *fiber.Ctx) error {
	return s.setPublished(c, false)
}

// GetEventParticipants lists everyone enrolled in one of the creator's events.
func (s *EventService) GetEventParticipants(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	event, err := s.findOwnedEvent(c.Params("id"), participant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var enrollments []models.EventParticipant
	if err := s.DB.Where("event_id = ?", event.ID).Order("joined_at asc").Find(&enrollments).Error; err != nil {
		log.Printf("DB error fetching enrollments: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	type entry struct {
		ParticipantID string    `json:"participant_id"`
		WalletAddress *string   `json:"wallet_address"`
		JoinedAt      time.Time `json:"joined_at"`
	}
	result := make([]entry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		e := entry{ParticipantID: enrollment.ParticipantID, JoinedAt: enrollment.JoinedAt}
		var p models.Participant
		if err := s.DB.First(&p, "id = ?", enrollment.ParticipantID).Error; err == nil {
			e.WalletAddress = p.WalletAddress
		}
		result = append(result, e)
	}

	return c.JSON(fiber.Map{"event_id": event.ID, "participants": result, "count": len(result)})
}

// GetEventClaims lists all claims recorded against one of the creator's
// events, whatever their state.
func (s *EventService) GetEventClaims(c *fiber.Ctx) error {
	participant := c.Locals("participant").(*models.Participant)

	event, err := s.findOwnedEvent(c.Params("id"), participant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Event not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var claims []models.Claim
	if err := s.DB.Where("event_id = ?", event.ID).Order("created_at asc").Find(&claims).Error; err != nil {
		log.Printf("DB error fetching claims: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{"event_id": event.ID, "claims": claims, "count": len(claims)})
}

// rewardsForEvent is the one catalog read. The creator API and the claim
// ledger both go through it so they can never disagree on ordering.
func rewardsForEvent(db *gorm.DB, eventID string) ([]models.Reward, error) {
	var rewards []models.Reward
	err := db.Where("event_id = ?", eventID).Order("created_at asc").Find(&rewards).Error
	return rewards, err
}

// RewardsForEvent returns the event's reward catalog in creation order.
// Ordering is stable but not otherwise meaningful.
func (s *EventService) RewardsForEvent(eventID string) ([]models.Reward, error) {
	return rewardsForEvent(s.DB, eventID)
}
