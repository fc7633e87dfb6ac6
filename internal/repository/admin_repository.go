package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authgate/internal/database"
	"authgate/internal/models"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

const adminColumns = `id, username, email, password_hash, is_super_admin, is_active, created_at, updated_at`

func scanAdmin(row pgx.Row) (models.Admin, error) {
	var admin models.Admin
	if err := row.Scan(
		&admin.ID,
		&admin.Username,
		&admin.Email,
		&admin.PasswordHash,
		&admin.IsSuperAdmin,
		&admin.IsActive,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Admin{}, ErrNotFound
		}
		return models.Admin{}, err
	}
	return admin, nil
}

func (r *AdminRepository) Create(ctx context.Context, admin models.Admin) error {
	const query = `
		INSERT INTO admins (id, username, email, password_hash, is_super_admin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db(ctx).Exec(ctx, query,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.IsSuperAdmin, admin.IsActive)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID returns the admin with its permission set resolved.
func (r *AdminRepository) GetByID(ctx context.Context, id string) (models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE id = $1`
	admin, err := scanAdmin(r.db(ctx).QueryRow(ctx, query, id))
	if err != nil {
		return models.Admin{}, err
	}
	if err := r.loadPermissions(ctx, &admin); err != nil {
		return models.Admin{}, err
	}
	return admin, nil
}

// FindByIdentifier looks an admin up by username or email, permissions
// resolved. Used by login, where the identifier field accepts either.
func (r *AdminRepository) FindByIdentifier(ctx context.Context, identifier string) (models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE username = $1 OR email = $1`
	admin, err := scanAdmin(r.db(ctx).QueryRow(ctx, query, identifier))
	if err != nil {
		return models.Admin{}, err
	}
	if err := r.loadPermissions(ctx, &admin); err != nil {
		return models.Admin{}, err
	}
	return admin, nil
}

func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE username = $1`
	return scanAdmin(r.db(ctx).QueryRow(ctx, query, username))
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (models.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE email = $1`
	return scanAdmin(r.db(ctx).QueryRow(ctx, query, email))
}

func (r *AdminRepository) Update(ctx context.Context, admin models.Admin) error {
	const query = `
		UPDATE admins
		SET username = $2, email = $3, password_hash = $4, is_super_admin = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.db(ctx).Exec(ctx, query,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.IsSuperAdmin, admin.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdminRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM admin_permissions WHERE admin_id = $1`, id); err != nil {
		return err
	}
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns a page of admins ordered by creation time, newest first,
// with permission sets resolved, plus the total count.
func (r *AdminRepository) List(ctx context.Context, limit, offset int) ([]models.Admin, int, error) {
	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + adminColumns + ` FROM admins ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range admins {
		if err := r.loadPermissions(ctx, &admins[i]); err != nil {
			return nil, 0, err
		}
	}
	return admins, total, nil
}

// ReplacePermissions swaps the admin's permission set for the given ids.
func (r *AdminRepository) ReplacePermissions(ctx context.Context, adminID string, permissionIDs []string) error {
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM admin_permissions WHERE admin_id = $1`, adminID); err != nil {
		return err
	}
	const insert = `INSERT INTO admin_permissions (admin_id, permission_id) VALUES ($1, $2)`
	for _, pid := range permissionIDs {
		if _, err := r.db(ctx).Exec(ctx, insert, adminID, pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *AdminRepository) loadPermissions(ctx context.Context, admin *models.Admin) error {
	const query = `
		SELECT p.id, p.name, p.resource, p.action, p.description
		FROM permissions p
		JOIN admin_permissions ap ON ap.permission_id = p.id
		WHERE ap.admin_id = $1
		ORDER BY p.resource, p.action
	`
	rows, err := r.db(ctx).Query(ctx, query, admin.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	admin.Permissions = admin.Permissions[:0]
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description); err != nil {
			return err
		}
		admin.Permissions = append(admin.Permissions, p)
	}
	return rows.Err()
}
