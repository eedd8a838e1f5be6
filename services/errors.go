package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors for the claim pipeline. Handlers map these to HTTP statuses;
// anything else is treated as an internal error.
var (
	ErrEventNotFound       = errors.New("event not found, inactive, or not published")
	ErrInvalidWallet       = errors.New("invalid wallet address")
	ErrWalletMismatch      = errors.New("wallet address mismatch: this account is already linked to a different wallet")
	ErrWorldIDMismatch     = errors.New("WorldID mismatch: this proof does not match your account")
	ErrNotEnrolled         = errors.New("you must join the event before claiming rewards")
	ErrNoRewardsConfigured = errors.New("no rewards available for this event")
	ErrAlreadyClaimed      = errors.New("rewards for this event have already been claimed")
)

// isUniqueViolation reports whether err is a storage-level unique constraint
// failure. GORM translates these to ErrDuplicatedKey for postgres; the sqlite
// driver used in tests surfaces them as plain errors, so we also match on the
// message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
