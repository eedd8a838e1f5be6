package models

import "gorm.io/gorm"

// AutoMigrate creates/updates the five domain tables. Shared by main and the
// test helpers so both run against the same schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Participant{},
		&Event{},
		&Reward{},
		&EventParticipant{},
		&Claim{},
	)
}
