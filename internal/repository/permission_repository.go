package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authgate/internal/database"
	"authgate/internal/models"
)

// PermissionRepository reads the permission reference data. Rows are only
// written by the seed step.
type PermissionRepository struct {
	pool *pgxpool.Pool
}

func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

func (r *PermissionRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

const permissionColumns = `id, name, resource, action, description`

func (r *PermissionRepository) List(ctx context.Context) ([]models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions ORDER BY resource, action`
	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// GetByIDs returns the permissions matching ids. Callers compare lengths
// to detect unknown ids.
func (r *PermissionRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE id = ANY($1)`
	rows, err := r.db(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *PermissionRepository) FindByName(ctx context.Context, name string) (models.Permission, error) {
	query := `SELECT ` + permissionColumns + ` FROM permissions WHERE name = $1`
	var p models.Permission
	if err := r.db(ctx).QueryRow(ctx, query, name).Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Permission{}, ErrNotFound
		}
		return models.Permission{}, err
	}
	return p, nil
}

// Create inserts a permission row. Seed-time only.
func (r *PermissionRepository) Create(ctx context.Context, p models.Permission) error {
	const query = `
		INSERT INTO permissions (id, name, resource, action, description)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db(ctx).Exec(ctx, query, p.ID, p.Name, p.Resource, p.Action, p.Description)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func collectPermissions(rows pgx.Rows) ([]models.Permission, error) {
	var perms []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
