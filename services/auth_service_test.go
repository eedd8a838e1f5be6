package services

import (
	"sync"
	"testing"

	"event-reward-system/models"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	return &AuthService{DB: setupTestDB(t), JWTKey: []byte("test-secret")}
}

func TestFindOrCreateParticipant(t *testing.T) {
	svc := newTestAuthService(t)
	user := GoogleUser{GoogleID: "sub-123", Email: "alice@example.com"}

	first, err := svc.FindOrCreateParticipant(user)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.GoogleID == nil || *first.GoogleID != "sub-123" {
		t.Fatalf("google id not stored: %+v", first)
	}
	if first.WalletAddress != nil || first.WorldIDHash != nil {
		t.Fatal("new participants must have no wallet or WorldID yet")
	}

	second, err := svc.FindOrCreateParticipant(user)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same participant, got %s and %s", first.ID, second.ID)
	}

	var count int64
	if err := svc.DB.Model(&models.Participant{}).Where("google_id = ?", "sub-123").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}

// Two requests racing to create the same identity key must both come back
// with the winner's row, never an error and never two rows.
func TestFindOrCreateParticipantConcurrent(t *testing.T) {
	svc := newTestAuthService(t)
	user := GoogleUser{GoogleID: "sub-race"}

	const workers = 4
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.FindOrCreateParticipant(user)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = p.ID
		}(i)
	}
	wg.Wait()

	var winner string
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			continue
		}
		if winner == "" {
			winner = ids[i]
		} else if ids[i] != winner {
			t.Fatalf("two distinct participants resolved: %s and %s", winner, ids[i])
		}
	}
	if winner == "" {
		t.Fatal("every request failed")
	}

	var count int64
	if err := svc.DB.Model(&models.Participant{}).Where("google_id = ?", "sub-race").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
}

func TestIssueToken(t *testing.T) {
	svc := newTestAuthService(t)
	token, err := svc.IssueToken("participant-1")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}
}
