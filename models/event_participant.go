package models

import "time"

// EventParticipant = join marker, at most one row per (event, participant).
// The composite unique index is what makes joins idempotent under concurrency.
type EventParticipant struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	EventID       string    `gorm:"type:uuid;not null;uniqueIndex:idx_event_participant" json:"event_id"`
	ParticipantID string    `gorm:"type:uuid;not null;uniqueIndex:idx_event_participant" json:"participant_id"`
	JoinedAt      time.Time `json:"joined_at" gorm:"autoCreateTime"`
}
