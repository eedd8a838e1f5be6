package models

import "time"

// ClaimStatus tracks the claim lifecycle. Transitions are monotonic:
// PENDING -> PROCESSING -> COMPLETED or FAILED. FAILED is terminal, there is
// no automatic retry, but the row stays queryable for diagnosis.
type ClaimStatus string

const (
	ClaimStatusPending    ClaimStatus = "PENDING"
	ClaimStatusProcessing ClaimStatus = "PROCESSING"
	ClaimStatusCompleted  ClaimStatus = "COMPLETED"
	ClaimStatusFailed     ClaimStatus = "FAILED"
)

// Claim is one participant's fulfillment attempt for one reward in one event.
// The composite unique index on (event, participant, reward) is the sole
// concurrency-safety mechanism for claims: two racing requests end up with
// exactly one row, the loser re-reads the winner's.
type Claim struct {
	ID              string      `gorm:"primaryKey;type:uuid" json:"id"`
	EventID         string      `gorm:"type:uuid;not null;uniqueIndex:idx_event_participant_reward" json:"event_id"`
	ParticipantID   string      `gorm:"type:uuid;not null;uniqueIndex:idx_event_participant_reward" json:"participant_id"`
	RewardID        string      `gorm:"type:uuid;not null;uniqueIndex:idx_event_participant_reward" json:"reward_id"`
	Status          ClaimStatus `gorm:"not null;default:'PENDING'" json:"status"`
	TransactionHash *string     `json:"transaction_hash,omitempty"` // set only on COMPLETED
	ErrorMessage    *string     `json:"error_message,omitempty"`    // set only on FAILED
	CreatedAt       time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}
