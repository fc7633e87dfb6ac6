package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"authgate/internal/config"
	"authgate/internal/ids"
	"authgate/internal/models"
	"authgate/internal/repository"
	"authgate/internal/security"
)

// catalog is the full permission set. Names are stable identifiers that
// route guards reference directly, so they must never be renamed.
var catalog = []models.Permission{
	{Name: "can_view_admins", Resource: "admins", Action: "view", Description: "View admin accounts"},
	{Name: "can_create_admin", Resource: "admins", Action: "create", Description: "Create admin accounts"},
	{Name: "can_edit_admin", Resource: "admins", Action: "edit", Description: "Edit admin accounts"},
	{Name: "can_delete_admin", Resource: "admins", Action: "delete", Description: "Delete admin accounts"},
	{Name: "can_manage_permissions", Resource: "admins", Action: "manage_permissions", Description: "Assign permissions to admins"},
	{Name: "can_view_users", Resource: "users", Action: "view", Description: "View user accounts"},
	{Name: "can_edit_user", Resource: "users", Action: "edit", Description: "Edit user accounts"},
	{Name: "can_delete_user", Resource: "users", Action: "delete", Description: "Delete user accounts"},
	{Name: "can_deactivate_user", Resource: "users", Action: "deactivate", Description: "Deactivate and reactivate user accounts"},
}

// Run makes the permission catalog and the bootstrap super admin exist.
// It is idempotent: rerunning against a seeded database changes nothing.
func Run(ctx context.Context, db *pgxpool.Pool, cfg config.SeedConfig, bcryptCost int, log zerolog.Logger) error {
	perms := repository.NewPermissionRepository(db)
	admins := repository.NewAdminRepository(db)

	created := 0
	for _, p := range catalog {
		_, err := perms.FindByName(ctx, p.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check permission %s: %w", p.Name, err)
		}
		p.ID = ids.New()
		if err := perms.Create(ctx, p); err != nil {
			return fmt.Errorf("create permission %s: %w", p.Name, err)
		}
		created++
	}
	if created > 0 {
		log.Info().Int("created", created).Msg("permissions seeded")
	}

	if cfg.SuperAdminUsername == "" || cfg.SuperAdminPassword == "" {
		log.Warn().Msg("super admin credentials not configured, skipping bootstrap")
		return nil
	}

	_, err := admins.FindByUsername(ctx, cfg.SuperAdminUsername)
	if err == nil {
		log.Info().Str("username", cfg.SuperAdminUsername).Msg("super admin already exists")
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check super admin: %w", err)
	}

	hash, err := security.HashPassword(cfg.SuperAdminPassword, bcryptCost)
	if err != nil {
		return fmt.Errorf("hash super admin password: %w", err)
	}

	admin := models.Admin{
		ID:           ids.New(),
		Username:     cfg.SuperAdminUsername,
		Email:        cfg.SuperAdminEmail,
		PasswordHash: hash,
		IsSuperAdmin: true,
		IsActive:     true,
	}
	if err := admins.Create(ctx, admin); err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}

	log.Info().Str("username", admin.Username).Msg("super admin created")
	return nil
}
