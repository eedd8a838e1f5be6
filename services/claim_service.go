package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"event-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimService owns the claim ledger: enrollment, wallet binding and the
// per-reward claim state machine. All concurrency safety comes from the
// storage-level unique constraints, not in-process locking.
type ClaimService struct {
	DB        *gorm.DB
	Submitter TransferSubmitter
}

func NewClaimService(db *gorm.DB, submitter TransferSubmitter) *ClaimService {
	return &ClaimService{DB: db, Submitter: submitter}
}

// findClaimableEvent loads an event that is active and published. Anything
// else (malformed id, missing, inactive, unpublished) is ErrEventNotFound.
func (s *ClaimService) findClaimableEvent(eventID string) (*models.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, ErrEventNotFound
	}
	var event models.Event
	err := s.DB.Where("id = ? AND is_active = ? AND is_published = ?", eventID, true, true).
		First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

// JoinEvent enrolls the participant in an event. Returns true if a new
// enrollment row was created, false if the participant had already joined.
// A racing duplicate insert loses against the unique constraint and is
// reported as already-joined, the same as a sequential repeat.
func (s *ClaimService) JoinEvent(eventID string, participant *models.Participant) (bool, error) {
	if _, err := s.findClaimableEvent(eventID); err != nil {
		return false, err
	}

	var existing models.EventParticipant
	err := s.DB.Where("event_id = ? AND participant_id = ?", eventID, participant.ID).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	enrollment := models.EventParticipant{
		ID:            uuid.NewString(),
		EventID:       eventID,
		ParticipantID: participant.ID,
	}
	if err := s.DB.Create(&enrollment).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}

	log.Printf("Participant %s joined event %s", participant.ID, eventID)
	return true, nil
}

// bindWallet enforces the one-wallet-per-participant rule. First-writer-wins
// and permanent: an unbound participant gets the wallet stored; a bound one
// must present the same address (case-insensitive) or the claim is rejected.
// The stored wallet is never overwritten.
func (s *ClaimService) bindWallet(participant *models.Participant, wallet string) error {
	if participant.WalletAddress != nil {
		if !strings.EqualFold(*participant.WalletAddress, wallet) {
			return ErrWalletMismatch
		}
		return nil
	}

	// Guarded write: only an unbound row takes the address, so a stale copy
	// can never overwrite a concurrent first bind.
	res := s.DB.Model(&models.Participant{}).
		Where("id = ? AND wallet_address IS NULL", participant.ID).
		Update("wallet_address", wallet)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			// The address is already bound to a different participant.
			return ErrWalletMismatch
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Another request bound a wallet between our read and this write.
		// Re-read and compare against the stored value.
		var fresh models.Participant
		if err := s.DB.First(&fresh, "id = ?", participant.ID).Error; err != nil {
			return err
		}
		if fresh.WalletAddress == nil || !strings.EqualFold(*fresh.WalletAddress, wallet) {
			return ErrWalletMismatch
		}
		participant.WalletAddress = fresh.WalletAddress
		return nil
	}
	participant.WalletAddress = &wallet
	return nil
}

// LinkWorldID stores the hashed nullifier on first use and verifies it on
// every later claim. A hash already bound to another account is rejected the
// same way as a mismatched one.
func (s *ClaimService) LinkWorldID(participant *models.Participant, worldIDHash string) error {
	if participant.WorldIDHash != nil {
		if *participant.WorldIDHash != worldIDHash {
			return ErrWorldIDMismatch
		}
		return nil
	}

	// Same guarded write as the wallet bind: first hash in wins, a stale copy
	// never overwrites it.
	res := s.DB.Model(&models.Participant{}).
		Where("id = ? AND world_id_hash IS NULL", participant.ID).
		Update("world_id_hash", worldIDHash)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrWorldIDMismatch
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		var fresh models.Participant
		if err := s.DB.First(&fresh, "id = ?", participant.ID).Error; err != nil {
			return err
		}
		if fresh.WorldIDHash == nil || *fresh.WorldIDHash != worldIDHash {
			return ErrWorldIDMismatch
		}
		participant.WorldIDHash = fresh.WorldIDHash
		return nil
	}
	participant.WorldIDHash = &worldIDHash
	return nil
}

// ProcessClaims drives every reward of an event through the claim lifecycle
// for one participant and returns the full claim sequence in catalog order.
//
// Precondition failures (event gate, wallet, enrollment, empty catalog,
// already claimed) abort before any claim row is touched. Once the loop
// starts, each reward's outcome is independent: a submission failure is
// recorded on that claim and never aborts the siblings, and terminal state is
// persisted per reward so a crash mid-loop leaves earlier rewards settled.
func (s *ClaimService) ProcessClaims(ctx context.Context, eventID string, participant *models.Participant, walletAddress string) ([]models.Claim, error) {
	event, err := s.findClaimableEvent(eventID)
	if err != nil {
		return nil, err
	}

	wallet, err := NormalizeWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}
	if err := s.bindWallet(participant, wallet); err != nil {
		return nil, err
	}

	var enrollment models.EventParticipant
	err = s.DB.Where("event_id = ? AND participant_id = ?", event.ID, participant.ID).
		First(&enrollment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}

	rewards, err := rewardsForEvent(s.DB, event.ID)
	if err != nil {
		return nil, err
	}
	if len(rewards) == 0 {
		return nil, ErrNoRewardsConfigured
	}

	// Any COMPLETED claim blocks all further claims in the event. This is a
	// deliberate product choice, not per-reward gating.
	var completed int64
	err = s.DB.Model(&models.Claim{}).
		Where("event_id = ? AND participant_id = ? AND status = ?", event.ID, participant.ID, models.ClaimStatusCompleted).
		Count(&completed).Error
	if err != nil {
		return nil, err
	}
	if completed > 0 {
		return nil, ErrAlreadyClaimed
	}

	claims := make([]models.Claim, 0, len(rewards))
	for _, reward := range rewards {
		claim, err := s.processReward(ctx, event, participant, reward, wallet)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *claim)
	}

	return claims, nil
}

// processReward advances a single (event, participant, reward) claim. An
// existing claim is returned as-is, whatever its state: the caller already
// got (or will get) its outcome, and re-running it would double-spend.
func (s *ClaimService) processReward(ctx context.Context, event *models.Event, participant *models.Participant, reward models.Reward, wallet string) (*models.Claim, error) {
	var existing models.Claim
	err := s.DB.Where("event_id = ? AND participant_id = ? AND reward_id = ?", event.ID, participant.ID, reward.ID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	claim := models.Claim{
		ID:            uuid.NewString(),
		EventID:       event.ID,
		ParticipantID: participant.ID,
		RewardID:      reward.ID,
		Status:        models.ClaimStatusPending,
	}
	if err := s.DB.Create(&claim).Error; err != nil {
		if isUniqueViolation(err) {
			// A concurrent request created this claim first. Return the
			// winner's row instead of erroring.
			var winner models.Claim
			readErr := s.DB.Where("event_id = ? AND participant_id = ? AND reward_id = ?", event.ID, participant.ID, reward.ID).
				First(&winner).Error
			if readErr != nil {
				return nil, fmt.Errorf("failed to resolve claim after conflict: %w", readErr)
			}
			return &winner, nil
		}
		return nil, err
	}

	// Durability checkpoint before the external call: a crash past this point
	// leaves the claim in PROCESSING for the reconciler to sweep.
	claim.Status = models.ClaimStatusProcessing
	if err := s.DB.Save(&claim).Error; err != nil {
		return nil, err
	}

	txHash, submitErr := s.submit(ctx, reward, wallet)
	if submitErr != nil {
		msg := submitErr.Error()
		claim.Status = models.ClaimStatusFailed
		claim.ErrorMessage = &msg
		log.Printf("❌ Claim %s failed (reward %s): %v", claim.ID, reward.ID, submitErr)
	} else {
		claim.Status = models.ClaimStatusCompleted
		claim.TransactionHash = &txHash
		log.Printf("✅ Claim %s completed: %s", claim.ID, txHash)
	}

	// Terminal state is persisted per reward, not batched at the end.
	if err := s.DB.Save(&claim).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

// submit calls the chain adapter. The adapter reports ordinary chain failures
// as error values; the recover here only covers truly unexpected faults so
// one bad reward cannot take down the rest of the batch.
func (s *ClaimService) submit(ctx context.Context, reward models.Reward, wallet string) (txHash string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("submission panic: %v", r)
		}
	}()

	req := TransferRequest{
		Kind:         reward.RewardType,
		TokenAddress: reward.TokenAddress,
		ToAddress:    wallet,
		Amount:       reward.Amount,
	}
	if reward.TokenID != nil {
		req.TokenID = *reward.TokenID
	} else if reward.RewardType != models.RewardTypeERC20 {
		return "", fmt.Errorf("reward %s has no token id", reward.ID)
	}

	return s.Submitter.SubmitTransfer(ctx, req)
}
