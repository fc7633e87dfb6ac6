package models

import "time"

// User is an end user identified by phone number. The record is created
// lazily on the first successful OTP verification.
type User struct {
	ID          string
	PhoneNumber string
	TelegramID  *int64
	IsActive    bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RefreshToken stores the SHA-256 hash of a raw refresh token. The raw
// value is never persisted; rotation revokes the row and inserts a new one.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
