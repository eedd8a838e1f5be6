package models

import "time"

// RewardType is the token standard governing how a transfer is encoded.
type RewardType string

const (
	RewardTypeERC20   RewardType = "ERC20"
	RewardTypeERC721  RewardType = "ERC721"
	RewardTypeERC1155 RewardType = "ERC1155"
)

// Reward is one line item owned by an event. Rewards are immutable after the
// event is created (there is no update endpoint) and are removed when the
// event is deleted.
type Reward struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	EventID      string     `gorm:"type:uuid;index;not null" json:"event_id"`
	RewardType   RewardType `gorm:"not null" json:"reward_type"`
	TokenAddress string     `gorm:"not null" json:"token_address"`
	Amount       string     `gorm:"type:numeric(36,18)" json:"amount,omitempty"` // ERC20 only, decimal string
	TokenID      *int64     `json:"token_id,omitempty"`                          // ERC721/1155 only
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
