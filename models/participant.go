package models

import "time"

// Participant is the identity anchor. A row is created on the first successful
// Google verification; the WorldID hash and wallet address are linked later, on
// the first claim.
type Participant struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	GoogleID      *string   `gorm:"uniqueIndex" json:"google_id,omitempty"`
	Email         *string   `json:"email,omitempty"`
	WorldIDHash   *string   `gorm:"uniqueIndex" json:"-"` // sha256 of the nullifier, never the raw value
	WalletAddress *string   `gorm:"uniqueIndex" json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
