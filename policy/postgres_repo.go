package policy

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PostgresRepo stores the policy record as a JSONB blob in the shared
// settings table of the public schema.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

var _ Repo = (*PostgresRepo)(nil)

func (r *PostgresRepo) Get(ctx context.Context) (MFARoles, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, RecordKey,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.Get] query settings")
	}

	var roles MFARoles
	if err := json.Unmarshal(payload, &roles); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.Get] decode record")
	}
	return roles, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, roles MFARoles) error {
	payload, err := json.Marshal(roles)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.Upsert] encode record")
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		RecordKey, payload,
	)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.Upsert] upsert settings")
	}
	return nil
}
