package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"event-reward-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// newEventTestApp wires the event service into a bare Fiber app with the
// given participant pre-authenticated.
func newEventTestApp(svc *EventService, participant *models.Participant) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("participant", participant)
		return c.Next()
	})
	app.Post("/events", svc.CreateEvent)
	app.Delete("/events/:id", svc.DeleteEvent)
	app.Post("/events/:id/publish", svc.PublishEvent)
	return app
}

func TestRewardsForEventOrderedByCreation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEventService(db)
	event := createTestEvent(t, db, true)

	// Insert out of natural timestamp order to prove the accessor sorts.
	for i, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		reward := models.Reward{
			ID:           uuid.NewString(),
			EventID:      event.ID,
			RewardType:   models.RewardTypeERC20,
			TokenAddress: testTokenERC20,
			Amount:       "1",
			Name:         fmt.Sprintf("reward-%d", i),
		}
		if err := db.Create(&reward).Error; err != nil {
			t.Fatalf("create reward: %v", err)
		}
		stamp := time.Now().Add(-offset)
		if err := db.Model(&models.Reward{}).Where("id = ?", reward.ID).
			UpdateColumn("created_at", stamp).Error; err != nil {
			t.Fatalf("backdate reward: %v", err)
		}
	}

	rewards, err := svc.RewardsForEvent(event.ID)
	if err != nil {
		t.Fatalf("rewards for event: %v", err)
	}
	if len(rewards) != 3 {
		t.Fatalf("expected 3 rewards, got %d", len(rewards))
	}
	want := []string{"reward-0", "reward-2", "reward-1"} // oldest first
	for i, reward := range rewards {
		if reward.Name != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], reward.Name)
		}
	}
}

func TestCreateEventWithRewards(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEventService(db)
	creator := createTestParticipant(t, db)
	app := newEventTestApp(svc, creator)

	body, _ := json.Marshal(fiber.Map{
		"name":        "Summer Hackathon 2026",
		"description": "Prizes for everyone who ships",
		"rewards": []fiber.Map{
			{"reward_type": "ERC20", "token_address": testTokenERC20, "amount": "100", "name": "USD stipend"},
			{"reward_type": "ERC721", "token_address": testTokenERC721, "token_id": 5, "name": "Finisher badge"},
		},
	})
	req := httptest.NewRequest("POST", "/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var event models.Event
	if err := db.Preload("Rewards").First(&event, "participant_id = ?", creator.ID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if event.Slug != "summer-hackathon-2026" {
		t.Fatalf("expected slug, got %q", event.Slug)
	}
	if event.IsPublished {
		t.Fatal("new events must start unpublished")
	}
	if len(event.Rewards) != 2 {
		t.Fatalf("expected 2 rewards, got %d", len(event.Rewards))
	}
}

func TestCreateEventRejectsBadRewards(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEventService(db)
	creator := createTestParticipant(t, db)
	app := newEventTestApp(svc, creator)

	cases := []fiber.Map{
		{"reward_type": "ERC20", "token_address": testTokenERC20}, // no amount
		{"reward_type": "ERC721", "token_address": testTokenERC721}, // no token id
		{"reward_type": "ERC20", "token_address": "nope", "amount": "1"},
		{"reward_type": "DOGE", "token_address": testTokenERC20, "amount": "1"},
	}
	for i, reward := range cases {
		body, _ := json.Marshal(fiber.Map{"name": "Bad event", "rewards": []fiber.Map{reward}})
		req := httptest.NewRequest("POST", "/events", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, resp.StatusCode)
		}
	}
}

func TestDeleteEventCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEventService(db)
	event := createTestEvent(t, db, true)
	reward := addERC20Reward(t, db, event.ID, testTokenERC20, "1")
	participant := createTestParticipant(t, db)

	enrollment := models.EventParticipant{ID: uuid.NewString(), EventID: event.ID, ParticipantID: participant.ID}
	if err := db.Create(&enrollment).Error; err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	claim := models.Claim{
		ID: uuid.NewString(), EventID: event.ID, ParticipantID: participant.ID,
		RewardID: reward.ID, Status: models.ClaimStatusFailed,
	}
	if err := db.Create(&claim).Error; err != nil {
		t.Fatalf("create claim: %v", err)
	}

	var creator models.Participant
	if err := db.First(&creator, "id = ?", event.ParticipantID).Error; err != nil {
		t.Fatalf("load creator: %v", err)
	}
	app := newEventTestApp(svc, &creator)

	resp, err := app.Test(httptest.NewRequest("DELETE", "/events/"+event.ID, nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	for name, model := range map[string]interface{}{
		"event":      &models.Event{},
		"reward":     &models.Reward{},
		"enrollment": &models.EventParticipant{},
		"claim":      &models.Claim{},
	} {
		var count int64
		query := db.Model(model)
		if name == "event" {
			query = query.Where("id = ?", event.ID)
		} else {
			query = query.Where("event_id = ?", event.ID)
		}
		if err := query.Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if count != 0 {
			t.Fatalf("expected %s rows to cascade, got %d", name, count)
		}
	}
}

func TestPublishEventOnlyByOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := NewEventService(db)
	event := createTestEvent(t, db, false)
	stranger := createTestParticipant(t, db)
	app := newEventTestApp(svc, stranger)

	resp, err := app.Test(httptest.NewRequest("POST", "/events/"+event.ID+"/publish", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for non-owner, got %d", resp.StatusCode)
	}

	var reloaded models.Event
	if err := db.First(&reloaded, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if reloaded.IsPublished {
		t.Fatal("stranger must not be able to publish the event")
	}

	var owner models.Participant
	if err := db.First(&owner, "id = ?", event.ParticipantID).Error; err != nil {
		t.Fatalf("load owner: %v", err)
	}
	ownerApp := newEventTestApp(svc, &owner)
	resp, err = ownerApp.Test(httptest.NewRequest("POST", "/events/"+event.ID+"/publish", nil))
	if err != nil {
		t.Fatalf("owner request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for owner, got %d", resp.StatusCode)
	}
	if err := db.First(&reloaded, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("reload event: %v", err)
	}
	if !reloaded.IsPublished {
		t.Fatal("owner publish must flip the flag")
	}
}
