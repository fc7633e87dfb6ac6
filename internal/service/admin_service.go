package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"authgate/internal/ids"
	"authgate/internal/models"
	"authgate/internal/repository"
	"authgate/internal/security"
)

// AdminService is the admin-account CRUD used by the back office. The
// self-action and super-admin guards live here, at the authorization
// boundary, not in database constraints.
type AdminService struct {
	tx       Transactor
	admins   AdminStore
	perms    PermissionStore
	sessions AdminSessionStore
	cost     int
	log      zerolog.Logger
}

func NewAdminService(
	tx Transactor,
	admins AdminStore,
	perms PermissionStore,
	sessions AdminSessionStore,
	bcryptCost int,
	log zerolog.Logger,
) *AdminService {
	return &AdminService{
		tx:       tx,
		admins:   admins,
		perms:    perms,
		sessions: sessions,
		cost:     bcryptCost,
		log:      log,
	}
}

func (s *AdminService) List(ctx context.Context, page, limit int) ([]models.Admin, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.admins.List(ctx, limit, (page-1)*limit)
}

func (s *AdminService) Get(ctx context.Context, id string) (models.Admin, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Admin{}, ErrNotFound
	}
	return admin, err
}

func (s *AdminService) Permissions(ctx context.Context) ([]models.Permission, error) {
	return s.perms.List(ctx)
}

type CreateAdminInput struct {
	Username      string
	Email         string
	Password      string
	IsSuperAdmin  bool
	PermissionIDs []string
}

func (s *AdminService) Create(ctx context.Context, input CreateAdminInput) (models.Admin, error) {
	if _, err := s.admins.FindByUsername(ctx, input.Username); err == nil {
		return models.Admin{}, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.Admin{}, err
	}
	if _, err := s.admins.FindByEmail(ctx, input.Email); err == nil {
		return models.Admin{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.Admin{}, err
	}

	perms, err := s.resolvePermissions(ctx, input.PermissionIDs)
	if err != nil {
		return models.Admin{}, err
	}

	hash, err := security.HashPassword(input.Password, s.cost)
	if err != nil {
		return models.Admin{}, err
	}

	admin := models.Admin{
		ID:           ids.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		IsSuperAdmin: input.IsSuperAdmin,
		IsActive:     true,
		Permissions:  perms,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.admins.Create(ctx, admin); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return err
		}
		return s.admins.ReplacePermissions(ctx, admin.ID, input.PermissionIDs)
	})
	if err != nil {
		return models.Admin{}, err
	}

	s.log.Info().Str("admin_id", admin.ID).Str("username", admin.Username).Msg("admin created")
	return admin, nil
}

type UpdateAdminInput struct {
	Username     *string
	Email        *string
	Password     *string
	IsActive     *bool
	IsSuperAdmin *bool
}

// Update patches an admin. The acting admin cannot deactivate themselves.
func (s *AdminService) Update(ctx context.Context, actorID, id string, input UpdateAdminInput) (models.Admin, error) {
	if actorID == id && input.IsActive != nil && !*input.IsActive {
		return models.Admin{}, ErrSelfAction
	}

	admin, err := s.Get(ctx, id)
	if err != nil {
		return models.Admin{}, err
	}

	if input.Username != nil && *input.Username != admin.Username {
		if _, err := s.admins.FindByUsername(ctx, *input.Username); err == nil {
			return models.Admin{}, ErrUsernameTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return models.Admin{}, err
		}
		admin.Username = *input.Username
	}
	if input.Email != nil && *input.Email != admin.Email {
		if _, err := s.admins.FindByEmail(ctx, *input.Email); err == nil {
			return models.Admin{}, ErrEmailTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return models.Admin{}, err
		}
		admin.Email = *input.Email
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := security.HashPassword(*input.Password, s.cost)
		if err != nil {
			return models.Admin{}, err
		}
		admin.PasswordHash = hash
	}
	if input.IsActive != nil {
		admin.IsActive = *input.IsActive
	}
	if input.IsSuperAdmin != nil {
		admin.IsSuperAdmin = *input.IsSuperAdmin
	}

	if err := s.admins.Update(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Admin{}, ErrUsernameTaken
		}
		return models.Admin{}, err
	}
	return admin, nil
}

// UpdatePermissions replaces the target's permission set. A super admin's
// set is immutable: they already satisfy every check.
func (s *AdminService) UpdatePermissions(ctx context.Context, id string, permissionIDs []string) (models.Admin, error) {
	admin, err := s.Get(ctx, id)
	if err != nil {
		return models.Admin{}, err
	}
	if admin.IsSuperAdmin {
		return models.Admin{}, ErrSuperAdminProtected
	}

	perms, err := s.resolvePermissions(ctx, permissionIDs)
	if err != nil {
		return models.Admin{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.admins.ReplacePermissions(ctx, id, permissionIDs)
	})
	if err != nil {
		return models.Admin{}, err
	}

	admin.Permissions = perms
	return admin, nil
}

// Delete removes an admin and their sessions. Self-deletion and deleting
// a super admin are rejected here regardless of permissions held.
func (s *AdminService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return ErrSelfAction
	}

	admin, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if admin.IsSuperAdmin {
		return ErrSuperAdminProtected
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.DeleteForAdmin(ctx, id); err != nil {
			return err
		}
		return s.admins.Delete(ctx, id)
	})
}

func (s *AdminService) resolvePermissions(ctx context.Context, ids []string) ([]models.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	perms, err := s.perms.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(perms) != len(ids) {
		return nil, ErrPermissionUnknown
	}
	return perms, nil
}
