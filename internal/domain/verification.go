package domain

import "time"

// VerificationCode is the single outstanding code for an address.
// Creating a new code for the same address replaces the previous one.
type VerificationCode struct {
	Address   string
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code is no longer usable at now.
func (c VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
