package models

import "time"

// Event is a reward campaign created by a participant. Only active AND
// published events are visible to (and joinable/claimable by) other
// participants. The time window is advisory: it is shown to users but not
// enforced as a claim gate.
type Event struct {
	ID            string     `gorm:"primaryKey;type:uuid" json:"id"`
	ParticipantID string     `gorm:"type:uuid;index;not null" json:"participant_id"` // creator
	Name          string     `gorm:"not null" json:"name"`
	Slug          string     `gorm:"index" json:"slug"`
	Description   string     `gorm:"type:text" json:"description"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`
	IsPublished   bool       `gorm:"not null;default:false" json:"is_published"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Rewards []Reward `gorm:"foreignKey:EventID" json:"rewards,omitempty"`
}
