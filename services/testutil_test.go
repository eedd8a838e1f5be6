package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"event-reward-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// stubSubmitter answers transfers from a canned per-token script instead of a
// chain. Thread-safe so concurrency tests can share one instance.
type stubSubmitter struct {
	mu       sync.Mutex
	failFor  map[string]string // token address -> error message
	nextHash int
	calls    []TransferRequest
}

func newStubSubmitter() *stubSubmitter {
	return &stubSubmitter{failFor: make(map[string]string)}
}

func (s *stubSubmitter) failToken(tokenAddress, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[tokenAddress] = message
}

func (s *stubSubmitter) SubmitTransfer(_ context.Context, req TransferRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if msg, ok := s.failFor[req.TokenAddress]; ok {
		return "", fmt.Errorf("%s", msg)
	}
	s.nextHash++
	return fmt.Sprintf("0x%064x", s.nextHash), nil
}

func (s *stubSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func createTestParticipant(t *testing.T, db *gorm.DB) *models.Participant {
	t.Helper()
	googleID := "google-" + uuid.NewString()
	participant := models.Participant{ID: uuid.NewString(), GoogleID: &googleID}
	if err := db.Create(&participant).Error; err != nil {
		t.Fatalf("create participant: %v", err)
	}
	return &participant
}

func createTestEvent(t *testing.T, db *gorm.DB, published bool) *models.Event {
	t.Helper()
	creator := createTestParticipant(t, db)
	event := models.Event{
		ID:            uuid.NewString(),
		ParticipantID: creator.ID,
		Name:          "Launch Party",
		Slug:          "launch-party",
		IsActive:      true,
		IsPublished:   published,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return &event
}

func addERC20Reward(t *testing.T, db *gorm.DB, eventID, tokenAddress, amount string) *models.Reward {
	t.Helper()
	reward := models.Reward{
		ID:           uuid.NewString(),
		EventID:      eventID,
		RewardType:   models.RewardTypeERC20,
		TokenAddress: tokenAddress,
		Amount:       amount,
		Name:         "Token drop",
	}
	if err := db.Create(&reward).Error; err != nil {
		t.Fatalf("create reward: %v", err)
	}
	return &reward
}

func addNFTReward(t *testing.T, db *gorm.DB, eventID string, kind models.RewardType, tokenAddress string, tokenID int64) *models.Reward {
	t.Helper()
	reward := models.Reward{
		ID:           uuid.NewString(),
		EventID:      eventID,
		RewardType:   kind,
		TokenAddress: tokenAddress,
		TokenID:      &tokenID,
		Name:         "NFT drop",
	}
	if err := db.Create(&reward).Error; err != nil {
		t.Fatalf("create reward: %v", err)
	}
	return &reward
}

const (
	testWallet      = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	testTokenERC20  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	testTokenERC721 = "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D"
)
