package service

import (
	"context"
	"time"

	"authgate/internal/models"
	"authgate/internal/repository"
)

// Transactor runs fn inside one transaction; store calls made from fn join
// it through the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier is the external messaging collaborator. Delivery is best-effort:
// implementations report failure, they never return errors.
type Notifier interface {
	SendOTP(ctx context.Context, chatID int64, code string) bool
	SendLoginAlert(ctx context.Context, chatID int64, ip, userAgent string) bool
}

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByPhone(ctx context.Context, phone string) (models.User, error)
	LinkTelegram(ctx context.Context, id string, chatID int64) error
	TouchLastLogin(ctx context.Context, id string) error
	Update(ctx context.Context, user models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params repository.ListUsersParams) ([]models.User, int, error)
}

type OTPStore interface {
	Create(ctx context.Context, otp models.OTPCode) error
	SupersedeActive(ctx context.Context, phone string) error
	FindActive(ctx context.Context, phone string, now time.Time) (models.OTPCode, error)
	RecordAttempt(ctx context.Context, id string) (int, error)
	Finish(ctx context.Context, id string, status models.OTPStatus) (bool, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error)
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteForUser(ctx context.Context, userID string) error
}

type AdminStore interface {
	Create(ctx context.Context, admin models.Admin) error
	GetByID(ctx context.Context, id string) (models.Admin, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.Admin, error)
	FindByUsername(ctx context.Context, username string) (models.Admin, error)
	FindByEmail(ctx context.Context, email string) (models.Admin, error)
	Update(ctx context.Context, admin models.Admin) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]models.Admin, int, error)
	ReplacePermissions(ctx context.Context, adminID string, permissionIDs []string) error
}

type PermissionStore interface {
	List(ctx context.Context) ([]models.Permission, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Permission, error)
}

type AdminSessionStore interface {
	Create(ctx context.Context, session models.AdminSession) error
	FindByToken(ctx context.Context, token string) (models.AdminSession, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteForAdmin(ctx context.Context, adminID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
