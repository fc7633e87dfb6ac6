package service

import (
	"errors"
	"fmt"
	"time"
)

// Expected business failures are routine negative outcomes on the request
// path, not faults. Handlers translate them to HTTP statuses; anything
// else bubbles up as an internal error.
var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInactive            = errors.New("account is deactivated, contact an administrator")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrSessionInvalid      = errors.New("invalid session")
	ErrOTPNotFound         = errors.New("verification code not found or expired, request a new one")
	ErrOTPExhausted        = errors.New("attempt limit reached, request a new code")
	ErrNotFound            = errors.New("record not found")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrEmailTaken          = errors.New("email address is already taken")
	ErrPhoneTaken          = errors.New("phone number is already taken")
	ErrPermissionUnknown   = errors.New("one or more permissions were not found")
	ErrSelfAction          = errors.New("you cannot perform this action on your own account")
	ErrSuperAdminProtected = errors.New("super admin accounts cannot be deleted or stripped of permissions")
)

// WrongCodeError reports an OTP mismatch with the attempts still left on
// the issued code.
type WrongCodeError struct {
	Remaining int
}

func (e *WrongCodeError) Error() string {
	return fmt.Sprintf("wrong code, %d attempts left", e.Remaining)
}

// RateLimitedError carries the backoff hint for a throttled operation.
type RateLimitedError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return e.Reason
}

// LoginFailedError is the generic credential failure. The message never
// reveals whether the identifier exists; Remaining < 0 means no
// remaining-attempts hint is given.
type LoginFailedError struct {
	Remaining int
}

func (e *LoginFailedError) Error() string {
	switch {
	case e.Remaining > 0:
		return fmt.Sprintf("%s (%d attempts left)", ErrInvalidCredentials, e.Remaining)
	case e.Remaining == 0:
		return "account temporarily locked, try again later"
	default:
		return ErrInvalidCredentials.Error()
	}
}

func (e *LoginFailedError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
