package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	apperrors "github.com/OliverPistillo/Doflow-PaaS-sub003/internal/errors"
)

// PostgresRepo persists users in the schema the pool's search_path is
// pinned to, so the same code serves every tenant schema.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

var _ UserRepo = (*PostgresRepo)(nil)

const userColumns = `id, email, password_hash, first_name, last_name, role,
	tenant_id, tenant_slug, date_joined, last_login, blocked, mf_type, mfa_secret`

func (r *PostgresRepo) Upsert(user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(context.Background(),
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = EXCLUDED.role,
			tenant_id = EXCLUDED.tenant_id,
			tenant_slug = EXCLUDED.tenant_slug,
			last_login = EXCLUDED.last_login,
			blocked = EXCLUDED.blocked,
			mf_type = EXCLUDED.mf_type,
			mfa_secret = EXCLUDED.mfa_secret`,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role),
		user.TenantID, user.TenantSlug, user.DateJoined, user.LastLogin, user.Blocked, string(user.MFType), user.MFASecret,
	)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.Upsert] upsert user")
	}
	return nil
}

func (r *PostgresRepo) Delete(userID string) error {
	_, err := r.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return errors.Wrap(err, "[PostgresRepo.Delete] delete user")
	}
	return nil
}

func (r *PostgresRepo) GetByID(userID string) (*User, error) {
	return r.getBy(`id = $1`, userID)
}

func (r *PostgresRepo) GetByEmail(email string) (*User, error) {
	return r.getBy(`lower(email) = lower($1)`, email)
}

func (r *PostgresRepo) getBy(where string, arg any) (*User, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.getBy] query user")
	}
	return user, nil
}

func (r *PostgresRepo) List(tenantID string, offset, limit int) ([]*User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(context.Background(),
		`SELECT `+userColumns+` FROM users
		 WHERE ($1 = '' OR tenant_id = $1)
		 ORDER BY id OFFSET $2 LIMIT $3`,
		tenantID, offset, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.List] query users")
	}
	defer rows.Close()

	all := []*User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[PostgresRepo.List] scan user")
		}
		all = append(all, user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "[PostgresRepo.List] iterate users")
	}
	return all, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var role, mfType string
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &role,
		&user.TenantID, &user.TenantSlug, &user.DateJoined, &user.LastLogin, &user.Blocked, &mfType, &user.MFASecret)
	if err != nil {
		return nil, err
	}
	user.Role = RoleType(role)
	user.MFType = MFAuthType(mfType)
	return &user, nil
}
