package tenants

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
)

// PostgresRepo persists the tenant directory in the public schema. Slug
// lookups are the hot path of tenant resolution, so slugs carry a
// unique index.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

var _ Repo = (*PostgresRepo)(nil)

func (r *PostgresRepo) Upsert(tenantData *Tenant) error {
	if slug, ok := NormalizeSlug(tenantData.Slug); ok {
		tenantData.Slug = slug
	} else {
		return apperrors.ErrInvalidTenantSlug
	}
	if tenantData.ID == "" {
		tenantData.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(context.Background(),
		`INSERT INTO tenants (id, name, slug, schema_name) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			schema_name = EXCLUDED.schema_name`,
		tenantData.ID, tenantData.Name, tenantData.Slug, tenantData.Schema,
	)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.Upsert] upsert tenant")
	}
	return nil
}

func (r *PostgresRepo) Delete(tenantID string) error {
	_, err := r.pool.Exec(context.Background(), `DELETE FROM tenants WHERE id = $1`, tenantID)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.Delete] delete tenant")
	}
	return nil
}

func (r *PostgresRepo) Get(tenantID string) (*Tenant, error) {
	return r.getBy(`id = $1`, tenantID)
}

func (r *PostgresRepo) GetBySlug(slug string) (*Tenant, error) {
	normalized, ok := NormalizeSlug(slug)
	if !ok {
		return nil, apperrors.ErrInvalidTenantSlug
	}
	return r.getBy(`slug = $1`, normalized)
}

func (r *PostgresRepo) getBy(where string, arg any) (*Tenant, error) {
	var tenant Tenant
	err := r.pool.QueryRow(context.Background(),
		`SELECT id, name, slug, schema_name FROM tenants WHERE `+where, arg,
	).Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Schema)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTenantNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.getBy] query tenant")
	}
	return &tenant, nil
}

func (r *PostgresRepo) List(offset, limit int) ([]*Tenant, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(context.Background(),
		`SELECT id, name, slug, schema_name FROM tenants ORDER BY slug OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.List] query tenants")
	}
	defer rows.Close()

	all := []*Tenant{}
	for rows.Next() {
		var tenant Tenant
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.Slug, &tenant.Schema); err != nil {
			return nil, errors.Wrap(err, "[PostgresRepo.List] scan tenant")
		}
		all = append(all, &tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.List] iterate tenants")
	}
	return all, nil
}
