package models

import "time"

type OTPStatus string

const (
	// OTPStatusIssued is the only non-terminal state.
	OTPStatusIssued OTPStatus = "issued"
	// OTPStatusVerified means the code was consumed by a successful check.
	OTPStatusVerified OTPStatus = "verified"
	// OTPStatusExhausted means the attempt budget was spent.
	OTPStatusExhausted OTPStatus = "exhausted"
	// OTPStatusSuperseded means a newer code was issued for the same phone.
	OTPStatusSuperseded OTPStatus = "superseded"
)

// OTPCode is a single verification challenge for a phone number. Expiry is
// computed from ExpiresAt at read time; there is no persisted expired state.
type OTPCode struct {
	ID          string
	PhoneNumber string
	Code        string
	Status      OTPStatus
	Attempts    int
	IPAddress   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

func (o OTPCode) Expired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
